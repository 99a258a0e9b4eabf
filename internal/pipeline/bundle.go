package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/identity"
	"github.com/upbeat-labs/learning-assistant/internal/prompt"
)

// PasswordPool hands out credentials that are unique across a batch and
// against credentials already stored.
type PasswordPool struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

// NewPasswordPool returns a pool that never issues a value in existing.
func NewPasswordPool(existing map[string]struct{}) *PasswordPool {
	taken := make(map[string]struct{}, len(existing))
	for pw := range existing {
		taken[pw] = struct{}{}
	}
	return &PasswordPool{taken: taken}
}

// Issue returns a fresh password and reserves it.
func (p *PasswordPool) Issue() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pw, err := identity.GeneratePassword(p.taken)
	if err != nil {
		return "", err
	}
	p.taken[pw] = struct{}{}
	return pw, nil
}

// GenerateBundle runs every stage for one student. Any stage error aborts
// the student.
func (g *Generator) GenerateBundle(ctx context.Context, survey domain.SurveyRecord, passwords *PasswordPool) (*domain.PlanBundle, error) {
	phase1, err := g.GeneratePhasePlan(ctx, survey, domain.PhaseOnboarding)
	if err != nil {
		return nil, err
	}
	ctx, span := g.startSpan(ctx, "pipeline.GenerateBundle", phase1.StudentID)
	defer span.End()

	plan1, plan1PDF, err := g.AppendMaterials(ctx, phase1)
	if err != nil {
		return nil, err
	}
	pdf1, err := g.pdf.PDF(plan1PDF)
	if err != nil {
		return nil, fail(span, fmt.Errorf("render phase 1 pdf for %s: %w", phase1.StudentID, err))
	}

	phase2, err := g.GeneratePhasePlan(ctx, survey, domain.PhaseTraining)
	if err != nil {
		return nil, err
	}
	pdf2, err := g.pdf.PDF(phase2.Plan)
	if err != nil {
		return nil, fail(span, fmt.Errorf("render phase 2 pdf for %s: %w", phase1.StudentID, err))
	}

	rawMilestones, milestones, err := g.GenerateMilestones(ctx, phase2.Plan, survey)
	if err != nil {
		return nil, err
	}

	assistant, err := prompt.BuildAssistantPrompt(g.inputs.Course, phase1.StudentInfo)
	if err != nil {
		return nil, fail(span, err)
	}
	password, err := passwords.Issue()
	if err != nil {
		return nil, fail(span, err)
	}

	return &domain.PlanBundle{
		StudentID:       phase1.StudentID,
		Password:        password,
		Phase1Prompt:    phase1.Prompt,
		Phase1Plan:      plan1,
		Phase1PDF:       pdf1,
		Phase2Prompt:    phase2.Prompt,
		Phase2Plan:      phase2.Plan,
		Phase2PDF:       pdf2,
		MilestonesRaw:   rawMilestones,
		Milestones:      milestones,
		AssistantPrompt: assistant,
		Survey:          survey,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
