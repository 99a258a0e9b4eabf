package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upbeat-labs/learning-assistant/internal/catalog"
	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/llm"
	"github.com/upbeat-labs/learning-assistant/internal/observability"
	"github.com/upbeat-labs/learning-assistant/internal/pipeline"
	"github.com/upbeat-labs/learning-assistant/internal/prompt"
	"github.com/upbeat-labs/learning-assistant/internal/render"
	"github.com/upbeat-labs/learning-assistant/internal/store"
)

func newGenerateCmd(v *viper.Viper, factory llm.ModelFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate plan bundles for every survey record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runGenerate(ctx, cmd, v, factory)
		},
	}

	f := cmd.Flags()
	f.String("surveys", "./data/surveys.yaml", "survey answers (YAML)")
	f.String("course", "./data/description_of_training.txt", "course module description")
	f.String("beginner", "./data/beginner_materials.yaml", "mandatory materials per skill question (YAML)")
	f.String("materials", "./data/curated_additional_materials.txt", "curated additional materials table")
	f.Int("concurrency", 1, "students generated at once")
	f.String("pdf-dir", "", "also write each student's PDFs under this directory")
	f.String("large-model", llm.LargeModel().Model, "model for plans and milestones")
	f.String("small-model", llm.SmallModel().Model, "model for material selection")
	f.Int("max-attempts", llm.DefaultMaxAttempts, "attempts per model call")
	f.Duration("retry-pause", time.Second, "pause between attempts")
	f.Bool("trace", false, "print trace spans to stderr")
	for _, name := range []string{
		"surveys", "course", "beginner", "materials", "concurrency", "pdf-dir",
		"large-model", "small-model", "max-attempts", "retry-pause", "trace",
	} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
	_ = v.BindEnv("openai-key", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic-key", "ANTHROPIC_API_KEY")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, v *viper.Viper, factory llm.ModelFactory) error {
	logger := slog.Default()

	shutdown, err := observability.Init(ctx, observability.Config{
		Enabled:     v.GetBool("trace"),
		ServiceName: "planner",
		Writer:      cmd.ErrOrStderr(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	surveys, err := catalog.LoadSurveys(v.GetString("surveys"))
	if err != nil {
		return err
	}
	modules, err := catalog.LoadCourseDescription(v.GetString("course"))
	if err != nil {
		return err
	}
	beginner, err := catalog.LoadBeginnerMaterials(v.GetString("beginner"))
	if err != nil {
		return err
	}
	materials, err := catalog.LoadMaterials(v.GetString("materials"))
	if err != nil {
		return err
	}
	smiley, err := render.SmileyDataURI()
	if err != nil {
		return err
	}

	db, err := store.NewSQLite(v.GetString("db"))
	if err != nil {
		return err
	}
	defer db.Close()
	existing, err := db.ListPasswords(ctx)
	if err != nil {
		return err
	}

	if factory == nil {
		factory = llm.NewProviderFactory(llm.Credentials{
			OpenAIKey:    v.GetString("openai-key"),
			AnthropicKey: v.GetString("anthropic-key"),
		})
	}
	gateway := llm.NewGateway(factory,
		llm.WithMaxAttempts(v.GetInt("max-attempts")),
		llm.WithBackoff(v.GetDuration("retry-pause")),
		llm.WithLogger(logger),
	)

	large, small := llm.LargeModel(), llm.SmallModel()
	large.Model = v.GetString("large-model")
	small.Model = v.GetString("small-model")

	gen := pipeline.NewGenerator(gateway, pipeline.Inputs{
		Course:    prompt.Course{ModulesDescription: modules, BeginnerMaterials: beginner},
		Catalog:   materials,
		SmileyURI: smiley,
	}, pipeline.WithModels(large, small), pipeline.WithLogger(logger))

	var sink pipeline.Sink = db
	if dir := v.GetString("pdf-dir"); dir != "" {
		sink = pdfSink{next: db, dir: dir}
	}

	logger.Info("generating plans", "surveys", len(surveys), "concurrency", v.GetInt("concurrency"))
	report, err := gen.RunBatch(ctx, surveys, pipeline.BatchOptions{
		Concurrency:       v.GetInt("concurrency"),
		Sink:              sink,
		ExistingPasswords: existing,
	})
	if err != nil {
		return err
	}
	return printReport(cmd, db, report)
}

func printReport(cmd *cobra.Command, db *store.SQLiteStore, report *pipeline.BatchReport) error {
	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "STUDENT\tPASSWORD\tSTATUS")
	for _, id := range report.Generated {
		b, err := db.GetBundle(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\tok\n", id, b.Password)
	}
	failed := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(out, "%s\t-\tfailed: %v\n", id, report.Failed[id])
	}
	for _, pos := range report.Duplicates {
		fmt.Fprintf(out, "#%d\t-\tskipped: duplicate student\n", pos)
	}
	if err := out.Flush(); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d students failed", len(report.Failed), len(report.Failed)+len(report.Generated))
	}
	return nil
}

// pdfSink writes each bundle's PDFs next to storing it.
type pdfSink struct {
	next pipeline.Sink
	dir  string
}

func (s pdfSink) SaveBundle(ctx context.Context, b *domain.PlanBundle) error {
	if err := writePDFs(b, filepath.Join(s.dir, b.StudentID)); err != nil {
		return err
	}
	return s.next.SaveBundle(ctx, b)
}

func writePDFs(b *domain.PlanBundle, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pdf directory: %w", err)
	}
	for _, phase := range []domain.Phase{domain.PhaseOnboarding, domain.PhaseTraining} {
		data, name, err := b.PDF(phase)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
