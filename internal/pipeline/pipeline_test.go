package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/llm"
	"github.com/upbeat-labs/learning-assistant/internal/prompt"
)

const smileyURI = "data:image/png;base64,AAAA"

// fakeInvoker answers each prompt kind with a canned response.
type fakeInvoker struct {
	mu        sync.Mutex
	calls     []llm.ModelConfig
	prompts   []string
	selection string
	fail      map[string]error
}

func (f *fakeInvoker) Invoke(_ context.Context, p string, cfg llm.ModelConfig) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg)
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	kind := promptKind(p)
	if err := f.fail[kind]; err != nil {
		return "", err
	}
	switch kind {
	case "phase1":
		return "<Smart_Learning_Plan>\n# Onboarding plan\n\nDear Student,\n\n## 1. Topics\n\nRead.\n\n" +
			prompt.EndingText + "\n</Smart_Learning_Plan>", nil
	case "phase2":
		return "Sure!\n<Smart_Learning_Plan>\n# Training plan\n\nDear Student,\n\n1. Build\n\n" +
			prompt.TrainingClosingText + "\n</Smart_Learning_Plan>", nil
	case "materials":
		if f.selection != "" {
			return f.selection, nil
		}
		return "Picked: [3, 1, 2, 2, 5, 6, 4]", nil
	case "milestones":
		return "<milestones>\n<milestone1>[Validate idea]</milestone1>\n<milestone2>(Build MVP)</milestone2>\n<milestone3>Pitch</milestone3>\n</milestones>", nil
	}
	return "", fmt.Errorf("unexpected prompt %.40q", p)
}

func promptKind(p string) string {
	switch {
	case strings.Contains(p, "recommending personalized learning materials"):
		return "materials"
	case strings.Contains(p, "creating a set of learning milestones"):
		return "milestones"
	case strings.Contains(p, "evaluate the skill level"), strings.Contains(p, "already possesses basic skills"):
		return "phase1"
	default:
		return "phase2"
	}
}

type fakePDF struct {
	mu     sync.Mutex
	inputs []string
}

func (f *fakePDF) PDF(md string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, md)
	return []byte("%PDF-fake"), nil
}

type memorySink struct {
	mu      sync.Mutex
	bundles map[string]*domain.PlanBundle
}

func (s *memorySink) SaveBundle(_ context.Context, b *domain.PlanBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bundles == nil {
		s.bundles = make(map[string]*domain.PlanBundle)
	}
	s.bundles[b.StudentID] = b
	return nil
}

func testCatalog() []domain.Material {
	out := make([]domain.Material, 8)
	for i := range out {
		out[i] = domain.Material{
			Index:       i + 1,
			Description: fmt.Sprintf("Material %d", i+1),
			URL:         fmt.Sprintf("https://example.com/m%d", i+1),
		}
	}
	return out
}

func testSurvey(email string, levels ...string) domain.SurveyRecord {
	answers := []domain.Answer{
		{Key: domain.NameQuestion, Value: "Ada"},
		{Key: domain.EmailQuestion, Value: email},
	}
	for i, lvl := range levels {
		answers = append(answers, domain.Answer{Key: fmt.Sprintf("Q11.%d. Topic %d", i+1, i+1), Value: lvl})
	}
	answers = append(answers, domain.Answer{Key: "Q16. Goals", Value: "Launch"})
	return domain.NewSurveyRecord(answers...)
}

func newTestGenerator(inv Invoker, pdf *fakePDF, opts ...Option) *Generator {
	in := Inputs{
		Course:    prompt.Course{ModulesDescription: `{"modules": []}`, BeginnerMaterials: map[string]string{}},
		Catalog:   testCatalog(),
		SmileyURI: smileyURI,
	}
	return NewGenerator(inv, in, append([]Option{WithPDFRenderer(pdf)}, opts...)...)
}

func TestGeneratePhasePlanStripsEndingFromOnboarding(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{}
	g := newTestGenerator(inv, &fakePDF{})

	res, err := g.GeneratePhasePlan(context.Background(), testSurvey(" Ada@Example.com ", "Basic (Beginner)"), domain.PhaseOnboarding)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.StudentID)
	assert.NotContains(t, res.Plan, prompt.EndingText)
	assert.True(t, strings.HasPrefix(res.Plan, "# Onboarding plan"))
	assert.Equal(t, []string{"Q11.1. Topic 1"}, res.SkillGaps)
	assert.Equal(t, llm.LargeModel(), inv.calls[0])

	res2, err := g.GeneratePhasePlan(context.Background(), testSurvey("ada@example.com"), domain.PhaseTraining)
	require.NoError(t, err)
	assert.Contains(t, res2.Plan, prompt.TrainingClosingText)
}

func TestGeneratePhasePlanErrors(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(&fakeInvoker{}, &fakePDF{})
	_, err := g.GeneratePhasePlan(context.Background(), domain.NewSurveyRecord(), domain.PhaseOnboarding)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	inv := &fakeInvoker{fail: map[string]error{"phase1": domain.ErrLLMUnavailable}}
	g = newTestGenerator(inv, &fakePDF{})
	_, err = g.GeneratePhasePlan(context.Background(), testSurvey("a@b.c"), domain.PhaseOnboarding)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAppendMaterialsSectionNumbering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		gaps    []string
		section string
	}{
		{name: "with skill gaps", gaps: []string{"Q11.1. Topic 1"}, section: "## 5. Additional online materials"},
		{name: "without skill gaps", gaps: nil, section: "## 4. Additional online materials"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			inv := &fakeInvoker{}
			g := newTestGenerator(inv, &fakePDF{})

			plan, planPDF, err := g.AppendMaterials(context.Background(), &PhaseResult{
				StudentID: "ada@example.com",
				Plan:      "# Plan\n\nDear Ada,\n",
				SkillGaps: tc.gaps,
			})
			require.NoError(t, err)
			assert.Contains(t, plan, tc.section)
			assert.Equal(t, llm.SmallModel(), inv.calls[0])

			// Indices are de-duplicated and ascending, renumbered from 1.
			assert.Contains(t, plan, "1: Material 1<br>https://example.com/m1\n\n")
			assert.Contains(t, plan, "6: Material 6<br>https://example.com/m6\n\n")
			assert.NotContains(t, plan, "7: ")

			assert.Equal(t, 1, strings.Count(plan, prompt.EndingText))
			assert.True(t, strings.HasSuffix(plan, "\n\n"+prompt.EndingText))
			assert.NotContains(t, plan, "<img")

			assert.Equal(t, 1, strings.Count(planPDF, `<img src="`+smileyURI+`" alt="happy" width="20" height="20">`))
			assert.NotContains(t, planPDF, ":)")
			assert.Equal(t, strings.TrimSuffix(plan, prompt.EndingText), planPDF[:len(plan)-len(prompt.EndingText)])
		})
	}
}

func TestAppendMaterialsCatalogPrompt(t *testing.T) {
	t.Parallel()
	inv := &fakeInvoker{}
	g := newTestGenerator(inv, &fakePDF{})

	_, _, err := g.AppendMaterials(context.Background(), &PhaseResult{StudentID: "a", Plan: "plan"})
	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "1: Material 1\n2: Material 2\n")
	assert.NotContains(t, inv.prompts[0], "https://example.com/m1")
}

func TestAppendMaterialsSelectionErrors(t *testing.T) {
	t.Parallel()

	for _, resp := range []string{"no list here", "[0, 2]", "[1, 99]"} {
		inv := &fakeInvoker{selection: resp}
		g := newTestGenerator(inv, &fakePDF{})
		_, _, err := g.AppendMaterials(context.Background(), &PhaseResult{StudentID: "a", Plan: "plan"})
		assert.ErrorIs(t, err, domain.ErrMaterialSelection, "response %q", resp)
	}
}

func TestAppendMaterialsTemplateDrift(t *testing.T) {
	t.Parallel()

	for _, ending := range []string{"No smiley here.", "Twice :) and :) again."} {
		g := newTestGenerator(&fakeInvoker{}, &fakePDF{}, WithEndingText(ending))
		_, _, err := g.AppendMaterials(context.Background(), &PhaseResult{StudentID: "a", Plan: "plan"})
		assert.ErrorIs(t, err, domain.ErrTemplateDrift, "ending %q", ending)
	}
}

func TestGenerateMilestones(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(&fakeInvoker{}, &fakePDF{})

	raw, milestones, err := g.GenerateMilestones(context.Background(), "plan", testSurvey("a@b.c"))
	require.NoError(t, err)
	assert.Contains(t, raw, "<milestones>")
	assert.Equal(t, []string{"Validate idea", "Build MVP", "Pitch"}, milestones)
}

func TestGenerateBundle(t *testing.T) {
	t.Parallel()
	pdf := &fakePDF{}
	g := newTestGenerator(&fakeInvoker{}, pdf)

	b, err := g.GenerateBundle(context.Background(), testSurvey("Ada@Example.com", "Basic (Beginner)"), NewPasswordPool(nil))
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", b.StudentID)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{15}$`), b.Password)
	assert.Contains(t, b.Phase1Plan, "## 5. Additional online materials")
	assert.Contains(t, b.Phase2Plan, "# Training plan")
	assert.Equal(t, []string{"Validate idea", "Build MVP", "Pitch"}, b.Milestones)
	assert.Contains(t, b.AssistantPrompt, "UPBEAT Learning Assistant")
	assert.Equal(t, []byte("%PDF-fake"), b.Phase1PDF)
	assert.Equal(t, []byte("%PDF-fake"), b.Phase2PDF)

	require.Len(t, pdf.inputs, 2)
	assert.Contains(t, pdf.inputs[0], "<img src=")
	assert.Equal(t, b.Phase2Plan, pdf.inputs[1])
}

func TestRunBatchIsolatesFailuresAndDuplicates(t *testing.T) {
	t.Parallel()

	inv := &failingFor{fakeInvoker: &fakeInvoker{}, marker: "Boom Person"}
	sink := &memorySink{}
	g := newTestGenerator(inv, &fakePDF{})

	surveys := []domain.SurveyRecord{
		testSurvey("one@example.com", "Basic (Beginner)"),
		domain.NewSurveyRecord(
			domain.Answer{Key: domain.NameQuestion, Value: "Boom Person"},
			domain.Answer{Key: domain.EmailQuestion, Value: "bad@example.com"},
		),
		testSurvey("ONE@example.com"),
		domain.NewSurveyRecord(domain.Answer{Key: domain.NameQuestion, Value: "No email"}),
		testSurvey("two@example.com"),
	}
	report, err := g.RunBatch(context.Background(), surveys, BatchOptions{
		Concurrency:       3,
		Sink:              sink,
		ExistingPasswords: map[string]struct{}{"000000000000000": {}},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"one@example.com", "two@example.com"}, report.Generated)
	assert.Equal(t, []int{3}, report.Duplicates)
	require.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed["bad@example.com"], domain.ErrLLMUnavailable)
	assert.ErrorIs(t, report.Failed["#4"], domain.ErrInvalidInput)

	require.Len(t, sink.bundles, 2)
	assert.NotEqual(t, sink.bundles["one@example.com"].Password, sink.bundles["two@example.com"].Password)
}

func TestRunBatchCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newTestGenerator(&fakeInvoker{}, &fakePDF{})
	_, err := g.RunBatch(ctx, []domain.SurveyRecord{testSurvey("a@b.c")}, BatchOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

// failingFor fails every call whose prompt contains marker.
type failingFor struct {
	*fakeInvoker
	marker string
}

func (f *failingFor) Invoke(ctx context.Context, p string, cfg llm.ModelConfig) (string, error) {
	if strings.Contains(p, f.marker) {
		return "", fmt.Errorf("%w: boom", domain.ErrLLMUnavailable)
	}
	return f.fakeInvoker.Invoke(ctx, p, cfg)
}

func TestReplaceWithin(t *testing.T) {
	t.Parallel()

	out, n := replaceWithin("a :) b", " :) ", ":)", "X")
	assert.Equal(t, "a X b", out)
	assert.Equal(t, 1, n)

	out, n = replaceWithin("a:)b", " :) ", ":)", "X")
	assert.Equal(t, "a:)b", out)
	assert.Zero(t, n)
}

type invokerFunc func(ctx context.Context, p string, cfg llm.ModelConfig) (string, error)

func (f invokerFunc) Invoke(ctx context.Context, p string, cfg llm.ModelConfig) (string, error) {
	return f(ctx, p, cfg)
}

func TestGenerateMilestonesUsesNormalizedStudentID(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	var logs bytes.Buffer

	inv := invokerFunc(func(context.Context, string, llm.ModelConfig) (string, error) {
		return "<milestones>\n<milestone1>Only one</milestone1>\n</milestones>", nil
	})
	g := newTestGenerator(inv, &fakePDF{},
		WithTracer(tp.Tracer("test")),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	_, milestones, err := g.GenerateMilestones(context.Background(), "plan", testSurvey(" Ada@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, []string{"Only one"}, milestones)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.GenerateMilestones", spans[0].Name())
	var got string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "student_id" {
			got = kv.Value.AsString()
		}
	}
	assert.Equal(t, "ada@example.com", got)

	assert.Contains(t, logs.String(), `"student_id":"ada@example.com"`)
	assert.NotContains(t, logs.String(), "Ada@Example.COM")
}

func TestGenerateMilestonesRejectsMissingEmail(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(&fakeInvoker{}, &fakePDF{})

	_, _, err := g.GenerateMilestones(context.Background(), "plan", testSurvey("  "))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
