// Package pipeline generates plan bundles from survey records: the two phase
// plans, curated material augmentation, milestones and rendered PDFs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/identity"
	"github.com/upbeat-labs/learning-assistant/internal/llm"
	"github.com/upbeat-labs/learning-assistant/internal/planparse"
	"github.com/upbeat-labs/learning-assistant/internal/prompt"
	"github.com/upbeat-labs/learning-assistant/internal/render"
)

// Invoker sends one prompt to a model and returns the completion text.
// *llm.Gateway implements it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, cfg llm.ModelConfig) (string, error)
}

// Inputs are the fixed course files shared by every student.
type Inputs struct {
	Course  prompt.Course
	Catalog []domain.Material
	// SmileyURI is the data URI inlined into the PDF closing line.
	SmileyURI string
}

// PhaseResult is the output of one plan generation.
type PhaseResult struct {
	Phase       domain.Phase
	StudentID   string
	Prompt      string
	Plan        string
	StudentInfo string
	SkillGaps   []string
}

// Generator runs the per-student generation stages.
type Generator struct {
	invoker Invoker
	inputs  Inputs
	large   llm.ModelConfig
	small   llm.ModelConfig
	pdf     render.PDFRenderer
	ending  string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Generator.
type Option func(*Generator)

// WithModels overrides the plan (large) and selection (small) model configs.
func WithModels(large, small llm.ModelConfig) Option {
	return func(g *Generator) {
		g.large = large
		g.small = small
	}
}

// WithPDFRenderer overrides the PDF renderer.
func WithPDFRenderer(r render.PDFRenderer) Option {
	return func(g *Generator) { g.pdf = r }
}

// WithEndingText overrides the onboarding closing text.
func WithEndingText(s string) Option {
	return func(g *Generator) { g.ending = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTracer overrides the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// NewGenerator returns a generator using the default model configs and the
// markdown PDF renderer.
func NewGenerator(inv Invoker, in Inputs, opts ...Option) *Generator {
	g := &Generator{
		invoker: inv,
		inputs:  in,
		large:   llm.LargeModel(),
		small:   llm.SmallModel(),
		pdf:     render.NewMarkdown(),
		ending:  prompt.EndingText,
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/upbeat-labs/learning-assistant/internal/pipeline"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) startSpan(ctx context.Context, name, studentID string) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("student_id", studentID)))
}

// studentIDOf returns the normalized student id of a survey response.
func studentIDOf(survey domain.SurveyRecord) (string, error) {
	email, err := survey.Email()
	if err != nil {
		return "", err
	}
	return identity.StudentIDFromEmail(email)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// GeneratePhasePlan renders the plan prompt, calls the large model and
// extracts the plan body. For phase 1 the closing text is removed so that it
// can be appended once, after augmentation.
func (g *Generator) GeneratePhasePlan(ctx context.Context, survey domain.SurveyRecord, phase domain.Phase) (*PhaseResult, error) {
	studentID, err := studentIDOf(survey)
	if err != nil {
		return nil, err
	}

	ctx, span := g.startSpan(ctx, "pipeline.GeneratePhasePlan", studentID)
	defer span.End()
	span.SetAttributes(attribute.Int("phase", int(phase)))

	pp, err := prompt.BuildPlanPrompt(g.inputs.Course, survey, phase)
	if err != nil {
		return nil, fail(span, err)
	}

	raw, err := g.invoker.Invoke(ctx, pp.Text, g.large)
	if err != nil {
		return nil, fail(span, fmt.Errorf("phase %d plan for %s: %w", phase, studentID, err))
	}
	plan, err := planparse.ExtractPlan(raw)
	if err != nil {
		return nil, fail(span, fmt.Errorf("phase %d plan for %s: %w", phase, studentID, err))
	}
	if phase == domain.PhaseOnboarding {
		plan = strings.ReplaceAll(plan, g.ending, "")
	}

	g.logger.Info("plan generated", "student_id", studentID, "phase", int(phase), "skill_gaps", len(pp.SkillGaps))
	return &PhaseResult{
		Phase:       phase,
		StudentID:   studentID,
		Prompt:      pp.Text,
		Plan:        plan,
		StudentInfo: pp.StudentInfo,
		SkillGaps:   pp.SkillGaps,
	}, nil
}

// AppendMaterials asks the small model to pick curated materials, appends
// them as the next numbered section and adds the closing text. It returns
// the stored plan and the variant with the inline smiley used for the PDF.
func (g *Generator) AppendMaterials(ctx context.Context, res *PhaseResult) (string, string, error) {
	ctx, span := g.startSpan(ctx, "pipeline.AppendMaterials", res.StudentID)
	defer span.End()

	p, err := prompt.BuildMaterialsPrompt(res.StudentInfo, res.Plan, g.inputs.Catalog)
	if err != nil {
		return "", "", fail(span, err)
	}
	resp, err := g.invoker.Invoke(ctx, p, g.small)
	if err != nil {
		return "", "", fail(span, fmt.Errorf("material selection for %s: %w", res.StudentID, err))
	}
	picked, err := planparse.ParseMaterialSelection(resp, len(g.inputs.Catalog))
	if err != nil {
		return "", "", fail(span, fmt.Errorf("material selection for %s: %w", res.StudentID, err))
	}
	if len(picked) != 6 {
		g.logger.Warn("unexpected number of curated materials", "student_id", res.StudentID, "count", len(picked))
	}

	section := MaterialsSection(materialsSectionNumber(res.SkillGaps), g.inputs.Catalog, picked)
	updated := res.Plan + "\n" + section

	smiley := fmt.Sprintf(`<img src="%s" alt="happy" width="20" height="20">`, g.inputs.SmileyURI)
	endingPDF, n := replaceWithin(g.ending, " :) ", ":)", smiley)
	if n != 1 {
		return "", "", fail(span, fmt.Errorf("%w: closing text has %d smiley markers, want 1", domain.ErrTemplateDrift, n))
	}
	return updated + g.ending, updated + endingPDF, nil
}

// materialsSectionNumber keeps numbering contiguous: the skill gap section
// only exists when the student has gaps.
func materialsSectionNumber(gaps []string) int {
	if len(gaps) > 0 {
		return 5
	}
	return 4
}

// MaterialsSection renders the selected catalog entries (1-based indices)
// as a numbered plan section.
func MaterialsSection(number int, catalog []domain.Material, picked []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %d. Additional online materials\n\n", number)
	for k, idx := range picked {
		m := catalog[idx-1]
		fmt.Fprintf(&b, "%d: %s<br>%s\n\n", k+1, m.Description, m.URL)
	}
	b.WriteString("\n")
	return b.String()
}

// replaceWithin replaces marker inside every occurrence of within and
// reports how many markers were replaced.
func replaceWithin(text, within, marker, repl string) (string, int) {
	n := strings.Count(text, within) * strings.Count(within, marker)
	if n == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, within, strings.ReplaceAll(within, marker, repl)), n
}
