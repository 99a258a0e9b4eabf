package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Course holds the fixed inputs shared by every student's prompts.
type Course struct {
	// ModulesDescription describes the four core modules.
	ModulesDescription string
	// BeginnerMaterials maps a skill question key to curated remediation text.
	BeginnerMaterials map[string]string
}

// PlanPrompt is a rendered plan prompt plus the derived values later stages reuse.
type PlanPrompt struct {
	Text        string
	StudentInfo string
	SkillGaps   []string
}

// BuildPlanPrompt selects and renders the plan template for phase 1 or 2.
func BuildPlanPrompt(course Course, survey domain.SurveyRecord, phase domain.Phase) (PlanPrompt, error) {
	info := StudentInformation(survey)
	gaps := SkillGaps(survey)
	out := PlanPrompt{StudentInfo: info, SkillGaps: gaps}

	var (
		text string
		err  error
	)
	switch phase {
	case domain.PhaseOnboarding:
		tmpl := Phase1Advanced
		materials := ""
		if len(gaps) > 0 {
			tmpl = Phase1Beginner
			materials = BeginnerMaterials(survey, gaps, course.BeginnerMaterials)
		}
		text, err = Render(tmpl, Vars{
			"core_modules_description": course.ModulesDescription,
			"student_information":      info,
			"skill_gaps_count":         strconv.Itoa(len(gaps)),
			"skill_gaps":               skillGapList(gaps),
			"beginner_level_materials": materials,
			"total_assignment_count":   strconv.Itoa(2 * len(gaps)),
			"ending_text":              EndingText,
		})
	case domain.PhaseTraining:
		text, err = Render(Phase2, Vars{
			"core_modules_description": course.ModulesDescription,
			"student_information":      info,
		})
	default:
		return PlanPrompt{}, fmt.Errorf("%w: no plan template for phase %d", domain.ErrInvalidInput, phase)
	}
	if err != nil {
		return PlanPrompt{}, fmt.Errorf("render phase %d prompt: %w", phase, err)
	}
	out.Text = text
	return out, nil
}

// BuildAssistantPrompt renders the default assistant system prompt.
func BuildAssistantPrompt(course Course, studentInfo string) (string, error) {
	return Render(Assistant, Vars{
		"core_modules_description": course.ModulesDescription,
		"student_information":      studentInfo,
	})
}

// BuildMilestonesPrompt renders the milestone extraction prompt.
func BuildMilestonesPrompt(course Course, survey domain.SurveyRecord, trainingPlan string) (string, error) {
	return Render(Milestones, Vars{
		"core_modules_description": course.ModulesDescription,
		"student_information":      MilestoneStudentInformation(survey),
		"learning_plan":            trainingPlan,
	})
}

// BuildMaterialsPrompt renders the catalog selection prompt. Catalog lines are
// numbered with the material's 1-based index.
func BuildMaterialsPrompt(studentInfo, plan string, catalog []domain.Material) (string, error) {
	var b strings.Builder
	for _, m := range catalog {
		fmt.Fprintf(&b, "%d: %s\n", m.Index, m.Description)
	}
	return Render(AdditionalMaterials, Vars{
		"student_information":      studentInfo,
		"learning_plan":            plan,
		"learning_materials":       b.String(),
		"learning_materials_count": strconv.Itoa(len(catalog)),
	})
}

func skillGapList(gaps []string) string {
	var b strings.Builder
	for _, g := range gaps {
		b.WriteString(g)
		b.WriteByte('\n')
	}
	return b.String()
}
