package domain

import (
	"fmt"
	"time"
)

// PlanBundle is the complete generated artifact set for one student.
// Produced once by the planner and read-only for the server.
type PlanBundle struct {
	StudentID       string       `json:"student_id"`
	Password        string       `json:"-"`
	Phase1Prompt    string       `json:"plan_prompt_phase1"`
	Phase1Plan      string       `json:"smart_plan_phase1"`
	Phase1PDF       []byte       `json:"-"`
	Phase2Prompt    string       `json:"plan_prompt_phase2"`
	Phase2Plan      string       `json:"smart_plan_phase2"`
	Phase2PDF       []byte       `json:"-"`
	MilestonesRaw   string       `json:"-"`
	Milestones      []string     `json:"milestones"`
	AssistantPrompt string       `json:"assistant_prompt"`
	Survey          SurveyRecord `json:"data"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Plan returns the plan body for phase 1 or 2.
func (b *PlanBundle) Plan(phase Phase) (string, error) {
	switch phase {
	case PhaseOnboarding:
		return b.Phase1Plan, nil
	case PhaseTraining:
		return b.Phase2Plan, nil
	default:
		return "", fmt.Errorf("%w: plan phase must be 1 or 2, got %d", ErrInvalidInput, phase)
	}
}

// PDF returns the rendered plan document and its download file name.
func (b *PlanBundle) PDF(phase Phase) ([]byte, string, error) {
	switch phase {
	case PhaseOnboarding:
		return b.Phase1PDF, "UPBEAT_onboarding_plan.pdf", nil
	case PhaseTraining:
		return b.Phase2PDF, "UPBEAT_training_plan.pdf", nil
	default:
		return nil, "", fmt.Errorf("%w: plan phase must be 1 or 2, got %d", ErrInvalidInput, phase)
	}
}
