package pipeline

import (
	"context"
	"fmt"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/planparse"
	"github.com/upbeat-labs/learning-assistant/internal/prompt"
)

const (
	minMilestones = 3
	maxMilestones = 10
)

// GenerateMilestones derives the milestone list from the training plan.
// Counts outside 3..10 are kept as returned and only logged.
func (g *Generator) GenerateMilestones(ctx context.Context, trainingPlan string, survey domain.SurveyRecord) (string, []string, error) {
	studentID, err := studentIDOf(survey)
	if err != nil {
		return "", nil, err
	}
	ctx, span := g.startSpan(ctx, "pipeline.GenerateMilestones", studentID)
	defer span.End()

	p, err := prompt.BuildMilestonesPrompt(g.inputs.Course, survey, trainingPlan)
	if err != nil {
		return "", nil, fail(span, err)
	}
	raw, err := g.invoker.Invoke(ctx, p, g.large)
	if err != nil {
		return "", nil, fail(span, fmt.Errorf("milestones: %w", err))
	}

	milestones := planparse.ExtractMilestones(raw)
	if n := len(milestones); n < minMilestones || n > maxMilestones {
		g.logger.Warn("milestone count out of range", "student_id", studentID, "count", n)
	}
	return raw, milestones, nil
}
