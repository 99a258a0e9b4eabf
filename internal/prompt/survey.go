package prompt

import (
	"fmt"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

var (
	privateQuestions   = []string{"Contact Information", "City of Residence"}
	milestoneQuestions = []string{"Q1.", "Q8.", "Q9.", "Q10.", "Q15.", "Q16.", "Q17.", "Q18.", "Additional Information"}
)

const (
	skillQuestion = "Q11"
	beginnerLevel = "(Beginner)"
)

// StudentInformation lists the survey answers shown to the plan and assistant
// prompts. Contact details are left out and skill answers get a " level" suffix.
func StudentInformation(s domain.SurveyRecord) string {
	var b strings.Builder
	for _, a := range s.Answers {
		if containsAny(a.Key, privateQuestions) {
			continue
		}
		if strings.Contains(a.Key, skillQuestion) {
			fmt.Fprintf(&b, "%s: %s level\n", a.Key, a.Value)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", a.Key, a.Value)
	}
	return b.String()
}

// MilestoneStudentInformation lists only the motivation, industry and goal answers.
func MilestoneStudentInformation(s domain.SurveyRecord) string {
	var b strings.Builder
	for _, a := range s.Answers {
		if containsAny(a.Key, milestoneQuestions) {
			fmt.Fprintf(&b, "%s: %s\n", a.Key, a.Value)
		}
	}
	return b.String()
}

// SkillGaps returns the skill question keys the student rated as beginner, in survey order.
func SkillGaps(s domain.SurveyRecord) []string {
	var gaps []string
	for _, a := range s.Answers {
		if strings.Contains(a.Key, skillQuestion) && strings.Contains(a.Value, beginnerLevel) {
			gaps = append(gaps, a.Key)
		}
	}
	return gaps
}

// BeginnerMaterials renders the mandatory material block for every skill gap.
// Curated text is copied verbatim; a gap with no curated entry falls back to
// the raw survey answer.
func BeginnerMaterials(s domain.SurveyRecord, gaps []string, curated map[string]string) string {
	var b strings.Builder
	for i, key := range gaps {
		material, ok := curated[key]
		if !ok {
			answer, _ := s.Get(key)
			material = key + ": " + answer
		}
		fmt.Fprintf(&b, "\n### %d %s  \n%s\n", i+1, topicName(key), material)
	}
	return b.String()
}

// topicName drops the question number: "Q11.2. Data analysis" -> "Data analysis".
func topicName(key string) string {
	parts := strings.Split(key, ". ")
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
