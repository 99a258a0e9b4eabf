package domain

import "strings"

// DefaultAgentTemperature is the sampling temperature of a fresh assistant.
const DefaultAgentTemperature = 0.3

// AgentSettings configures one student's assistant.
type AgentSettings struct {
	SystemPrompt            string  `json:"system_prompt"`
	Temperature             float64 `json:"temperature"`
	UsePlanTool             bool    `json:"use_plan_tool"`
	UseSearchTool           bool    `json:"use_search_tool"`
	UseLearningMaterialTool bool    `json:"use_learningmaterial_tool"`
	UseMilestonesTool       bool    `json:"use_milestones_tool"`
}

// DefaultAgentSettings enables every tool and uses the bundle's assistant prompt.
func DefaultAgentSettings(assistantPrompt string) AgentSettings {
	return AgentSettings{
		SystemPrompt:            strings.TrimSpace(assistantPrompt),
		Temperature:             DefaultAgentTemperature,
		UsePlanTool:             true,
		UseSearchTool:           true,
		UseLearningMaterialTool: true,
		UseMilestonesTool:       true,
	}
}

// Clamped returns s with Temperature limited to [0, 1].
func (s AgentSettings) Clamped() AgentSettings {
	switch {
	case s.Temperature < 0:
		s.Temperature = 0
	case s.Temperature > 1:
		s.Temperature = 1
	}
	return s
}
