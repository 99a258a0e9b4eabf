package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/render"
	"github.com/upbeat-labs/learning-assistant/internal/store"
)

func openStore(v *viper.Viper) (*store.SQLiteStore, error) {
	return store.NewSQLite(v.GetString("db"))
}

func newUsersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List students with a stored plan bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()

			ids, err := db.ListStudentIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <student-id>",
		Short: "Render a student's plan in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := domain.ParsePlanPhase(v.GetString("phase"))
			if err != nil {
				return err
			}
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := db.GetBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			plan, err := b.Plan(phase)
			if err != nil {
				return err
			}
			if v.GetBool("raw") {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), plan)
				return err
			}
			out, err := render.Terminal(plan, v.GetInt("width"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().String("phase", "1", "plan phase (1 or 2)")
	cmd.Flags().Int("width", 100, "wrap width")
	cmd.Flags().Bool("raw", false, "print the markdown source")
	_ = v.BindPFlag("phase", cmd.Flags().Lookup("phase"))
	_ = v.BindPFlag("width", cmd.Flags().Lookup("width"))
	_ = v.BindPFlag("raw", cmd.Flags().Lookup("raw"))
	return cmd
}

func newExportPDFCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-pdf <student-id>",
		Short: "Write a student's plan PDFs to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := db.GetBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dir := v.GetString("out")
			if err := writePDFs(b, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote plans for %s to %s\n", b.StudentID, dir)
			return nil
		},
	}
	cmd.Flags().String("out", ".", "output directory")
	_ = v.BindPFlag("out", cmd.Flags().Lookup("out"))
	return cmd
}
