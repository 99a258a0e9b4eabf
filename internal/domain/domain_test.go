package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurveyRecordJSONKeepsQuestionOrder(t *testing.T) {
	t.Parallel()

	rec := NewSurveyRecord(
		Answer{Key: "Q2. Age", Value: "31"},
		Answer{Key: "Q1. Full Name", Value: "Ada"},
		Answer{Key: EmailQuestion, Value: " Ada@Example.com "},
	)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"Q2. Age":"31","Q1. Full Name":"Ada","Q5. Contact Information, email":" Ada@Example.com "}`, string(data))

	var back SurveyRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)

	email, err := back.Email()
	require.NoError(t, err)
	assert.Equal(t, "Ada@Example.com", email)
	assert.Equal(t, "Ada", back.Name())
}

func TestSurveyRecordUnmarshalStringifiesScalars(t *testing.T) {
	t.Parallel()

	var rec SurveyRecord
	require.NoError(t, json.Unmarshal([]byte(`{"Q2. Age": 31, "Q3. Remote": true, "Q4": null}`), &rec))
	assert.Equal(t, []Answer{{"Q2. Age", "31"}, {"Q3. Remote", "true"}, {"Q4", ""}}, rec.Answers)
}

func TestSurveyRecordEmailMissing(t *testing.T) {
	t.Parallel()

	_, err := NewSurveyRecord(Answer{Key: "Q1. Full Name", Value: "Ada"}).Email()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestScheduleCurrent(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 30, 23, 0, 0, 0, time.UTC)
	s := Schedule{Start: start, End: end}

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"before start", start.Add(-time.Minute), PhaseOnboarding},
		{"at start", start, PhaseTraining},
		{"during", start.Add(48 * time.Hour), PhaseTraining},
		{"at end", end, PhasePostTraining},
		{"after", end.Add(time.Hour), PhasePostTraining},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Current(tt.now); got != tt.want {
				t.Errorf("Current(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	debug := Schedule{Start: start, End: end, Debug: true}
	if got := debug.Current(start.Add(-time.Hour)); got != PhaseTraining {
		t.Errorf("debug schedule = %v, want training", got)
	}
	debug.DebugPhase = PhaseOnboarding
	if got := debug.Current(end.Add(time.Hour)); got != PhaseOnboarding {
		t.Errorf("debug schedule with override = %v, want onboarding", got)
	}
}

func TestParsePlanPhase(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"1", "2"} {
		if _, err := ParsePlanPhase(in); err != nil {
			t.Errorf("ParsePlanPhase(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"0", "3", "x", ""} {
		if _, err := ParsePlanPhase(in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParsePlanPhase(%q) = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestLearningStateWithStates(t *testing.T) {
	t.Parallel()

	s := NewLearningState([]string{"a", "b", "c"})
	require.NoError(t, s.Validate())
	assert.Equal(t, []bool{false, false, false}, s.States)

	updated, err := s.WithStates([]bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, updated.Labels)
	assert.Equal(t, []bool{true, false, true}, updated.States)
	assert.Equal(t, []bool{false, false, false}, s.States, "original must not change")

	_, err = s.WithStates([]bool{true})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAgentSettingsClamped(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AgentSettings{Temperature: -0.5}.Clamped().Temperature)
	assert.Equal(t, 1.0, AgentSettings{Temperature: 1.7}.Clamped().Temperature)
	assert.Equal(t, 0.4, AgentSettings{Temperature: 0.4}.Clamped().Temperature)

	d := DefaultAgentSettings("  prompt \n")
	assert.Equal(t, "prompt", d.SystemPrompt)
	assert.Equal(t, DefaultAgentTemperature, d.Temperature)
	assert.True(t, d.UsePlanTool && d.UseSearchTool && d.UseLearningMaterialTool && d.UseMilestonesTool)
}

func TestPlanBundleSelectors(t *testing.T) {
	t.Parallel()

	b := &PlanBundle{Phase1Plan: "one", Phase2Plan: "two", Phase1PDF: []byte("p1"), Phase2PDF: []byte("p2")}
	p, err := b.Plan(PhaseTraining)
	require.NoError(t, err)
	assert.Equal(t, "two", p)

	pdf, name, err := b.PDF(PhaseOnboarding)
	require.NoError(t, err)
	assert.Equal(t, "p1", string(pdf))
	assert.Equal(t, "UPBEAT_onboarding_plan.pdf", name)

	_, err = b.Plan(PhasePostTraining)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
