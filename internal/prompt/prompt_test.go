package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

func testSurvey(levels ...string) domain.SurveyRecord {
	answers := []domain.Answer{
		{Key: "Q1. Full Name", Value: "Ada Lovelace"},
		{Key: "Q4. City of Residence", Value: "London"},
		{Key: domain.EmailQuestion, Value: "ada@example.com"},
		{Key: "Q8. Industry", Value: "Fintech"},
	}
	topics := []string{"Generative AI", "Data analysis", "Pitching"}
	for i, lvl := range levels {
		answers = append(answers, domain.Answer{
			Key:   "Q11." + string(rune('1'+i)) + ". " + topics[i],
			Value: lvl,
		})
	}
	answers = append(answers, domain.Answer{Key: "Q16. Goals", Value: "Launch a startup"})
	return domain.NewSurveyRecord(answers...)
}

func TestRenderReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	got, err := Render("{a} and {a} then {b}", Vars{"a": "x", "b": "y", "unused": "z"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got != "x and x then y" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRenderIsSinglePass(t *testing.T) {
	t.Parallel()

	got, err := Render("{a}|{b}", Vars{"a": "{b}", "b": "B"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got != "{b}|B" {
		t.Fatalf("inserted text was re-scanned: %q", got)
	}
}

func TestRenderReportsMissingPlaceholders(t *testing.T) {
	t.Parallel()

	_, err := Render("{a} {b} {c}", Vars{"b": "1"})
	if !errors.Is(err, domain.ErrUnresolvedPlaceholder) {
		t.Fatalf("expected ErrUnresolvedPlaceholder, got %v", err)
	}
	if !strings.Contains(err.Error(), "a, c") {
		t.Fatalf("expected missing names in error, got %v", err)
	}
}

func TestMustRenderPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustRender("{missing}", nil)
}

func TestStudentInformationFiltersAndSuffixes(t *testing.T) {
	t.Parallel()

	got := StudentInformation(testSurvey("Beginner (Beginner)"))
	want := "Q1. Full Name: Ada Lovelace\n" +
		"Q8. Industry: Fintech\n" +
		"Q11.1. Generative AI: Beginner (Beginner) level\n" +
		"Q16. Goals: Launch a startup\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("StudentInformation mismatch (-want +got):\n%s", diff)
	}
}

func TestMilestoneStudentInformation(t *testing.T) {
	t.Parallel()

	got := MilestoneStudentInformation(testSurvey("Expert"))
	want := "Q1. Full Name: Ada Lovelace\nQ8. Industry: Fintech\nQ16. Goals: Launch a startup\n"
	if got != want {
		t.Fatalf("unexpected milestone info:\n%s", got)
	}
}

func TestBuildPlanPromptBeginner(t *testing.T) {
	t.Parallel()

	survey := testSurvey("Basic (Beginner)", "Good (Intermediate)", "None (Beginner)")
	course := Course{
		ModulesDescription: `{"modules": ["M1", "M2"]}`,
		BeginnerMaterials: map[string]string{
			"Q11.1. Generative AI": "Watch the *GenAI basics* video.\nhttps://example.com/genai",
		},
	}

	p, err := BuildPlanPrompt(course, survey, domain.PhaseOnboarding)
	if err != nil {
		t.Fatalf("BuildPlanPrompt failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Q11.1. Generative AI", "Q11.3. Pitching"}, p.SkillGaps); diff != "" {
		t.Fatalf("skill gaps mismatch:\n%s", diff)
	}
	for _, want := range []string{
		"(total 4 assignments)",
		"identified as 2 topics",
		"\n### 1 Generative AI  \nWatch the *GenAI basics* video.\nhttps://example.com/genai\n",
		"\n### 2 Pitching  \nQ11.3. Pitching: None (Beginner)\n",
		`{"modules": ["M1", "M2"]}`,
		EndingText,
	} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if len(Placeholders(p.Text)) != 0 {
		t.Errorf("prompt still has placeholders: %v", Placeholders(p.Text))
	}
}

func TestBuildPlanPromptAdvancedAndTraining(t *testing.T) {
	t.Parallel()

	survey := testSurvey("Expert", "Good (Intermediate)")
	course := Course{ModulesDescription: "modules"}

	p1, err := BuildPlanPrompt(course, survey, domain.PhaseOnboarding)
	if err != nil {
		t.Fatalf("phase 1: %v", err)
	}
	if !strings.Contains(p1.Text, "already possesses basic skills") {
		t.Errorf("expected advanced template for zero skill gaps")
	}
	if len(p1.SkillGaps) != 0 {
		t.Errorf("expected no skill gaps, got %v", p1.SkillGaps)
	}

	p2, err := BuildPlanPrompt(course, survey, domain.PhaseTraining)
	if err != nil {
		t.Fatalf("phase 2: %v", err)
	}
	if !strings.Contains(p2.Text, "# Smart learning plan (training)") || !strings.Contains(p2.Text, TrainingClosingText) {
		t.Errorf("expected training template")
	}

	if _, err := BuildPlanPrompt(course, survey, domain.PhasePostTraining); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for phase 3, got %v", err)
	}
}

func TestBuildMaterialsPromptNumbersCatalog(t *testing.T) {
	t.Parallel()

	catalog := []domain.Material{
		{Index: 1, Description: "Intro course", URL: "https://a"},
		{Index: 2, Description: "Pitch video", URL: "https://b"},
	}
	got, err := BuildMaterialsPrompt("info", "plan", catalog)
	if err != nil {
		t.Fatalf("BuildMaterialsPrompt failed: %v", err)
	}
	for _, want := range []string{"1: Intro course\n2: Pitch video\n", "list of 2 items", "<student_learning_plan>\nplan\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestTemplatesHaveOnlyKnownPlaceholders(t *testing.T) {
	t.Parallel()

	known := map[string]bool{
		"core_modules_description": true, "student_information": true, "skill_gaps_count": true,
		"skill_gaps": true, "beginner_level_materials": true, "total_assignment_count": true,
		"ending_text": true, "learning_plan": true, "learning_materials": true, "learning_materials_count": true,
	}
	for _, tmpl := range []string{Phase1Beginner, Phase1Advanced, Phase2, AdditionalMaterials, Milestones, Assistant} {
		for _, name := range Placeholders(tmpl) {
			if !known[name] {
				t.Errorf("unknown placeholder %q", name)
			}
		}
	}
}
