// Command planner generates personalized learning plan bundles from survey
// answers and inspects the bundle database.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upbeat-labs/learning-assistant/internal/llm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using system environment variables")
	}
	if err := newRootCmd(viper.New(), nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A nil factory selects the real
// providers.
func newRootCmd(v *viper.Viper, factory llm.ModelFactory) *cobra.Command {
	v.SetEnvPrefix("UPBEAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "planner",
		Short:         "Generate and inspect UPBEAT learning plans",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	root.PersistentFlags().String("db", "./data/learning_plans.db", "bundle database path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newGenerateCmd(v, factory),
		newUsersCmd(v),
		newShowCmd(v),
		newExportPDFCmd(v),
	)
	return root
}
