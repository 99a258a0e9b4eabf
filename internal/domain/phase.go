package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Phase is one of the three temporal regimes of the course.
type Phase int

const (
	PhaseOnboarding   Phase = 1
	PhaseTraining     Phase = 2
	PhasePostTraining Phase = 3
)

func (p Phase) String() string {
	switch p {
	case PhaseOnboarding:
		return "onboarding"
	case PhaseTraining:
		return "training"
	case PhasePostTraining:
		return "post-training"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePlanPhase parses a plan phase path value. Only 1 and 2 have plans.
func ParsePlanPhase(s string) (Phase, error) {
	n, err := strconv.Atoi(s)
	if err != nil || (n != 1 && n != 2) {
		return 0, fmt.Errorf("%w: invalid phase %q, must be 1 or 2", ErrInvalidInput, s)
	}
	return Phase(n), nil
}

// Schedule decides the current phase from the training period boundaries.
type Schedule struct {
	Start      time.Time
	End        time.Time
	Debug      bool
	DebugPhase Phase
}

// Current returns the phase in effect at now.
func (s Schedule) Current(now time.Time) Phase {
	if s.Debug {
		if s.DebugPhase == 0 {
			return PhaseTraining
		}
		return s.DebugPhase
	}
	switch {
	case now.Before(s.Start):
		return PhaseOnboarding
	case now.Before(s.End):
		return PhaseTraining
	default:
		return PhasePostTraining
	}
}

// Message is the short status line shown next to the date in the UI.
func (s Schedule) Message(now time.Time) string {
	date := now.Format("02.01.2006")
	switch s.Current(now) {
	case PhaseOnboarding:
		return date + " We're in onboarding phase."
	case PhaseTraining:
		return date + " We're in training phase."
	default:
		return date + " We're in past-training phase."
	}
}
