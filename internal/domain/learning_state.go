package domain

import "fmt"

// LearningState tracks which milestones a student has completed.
// Labels and States always have the same length.
type LearningState struct {
	Labels []string `json:"labels"`
	States []bool   `json:"states"`
}

// NewLearningState starts every milestone as not completed.
func NewLearningState(milestones []string) LearningState {
	labels := make([]string, len(milestones))
	copy(labels, milestones)
	return LearningState{Labels: labels, States: make([]bool, len(milestones))}
}

// Validate reports whether the parallel slices are consistent.
func (s LearningState) Validate() error {
	if len(s.Labels) != len(s.States) {
		return fmt.Errorf("%w: %d labels but %d states", ErrInvalidInput, len(s.Labels), len(s.States))
	}
	return nil
}

// WithStates returns a copy of s with new completion flags. Labels never change.
func (s LearningState) WithStates(states []bool) (LearningState, error) {
	if len(states) != len(s.Labels) {
		return s, fmt.Errorf("%w: got %d states for %d milestones", ErrInvalidInput, len(states), len(s.Labels))
	}
	out := LearningState{
		Labels: make([]string, len(s.Labels)),
		States: make([]bool, len(states)),
	}
	copy(out.Labels, s.Labels)
	copy(out.States, states)
	return out, nil
}
