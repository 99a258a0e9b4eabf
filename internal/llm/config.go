// Package llm sends single-prompt requests to LLM providers with bounded retry.
package llm

import "strings"

// ModelConfig carries the per-call model parameters.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// ReasoningBudget is the extended reasoning token budget. Zero disables it.
	ReasoningBudget int
}

// LargeModel is used for plan and milestone generation.
func LargeModel() ModelConfig {
	return ModelConfig{
		Model:           "claude-3-7-sonnet-latest",
		Temperature:     0.2,
		MaxTokens:       16384,
		ReasoningBudget: 4000,
	}
}

// SmallModel is used for catalog selection.
func SmallModel() ModelConfig {
	return ModelConfig{
		Model:       "gpt-4o",
		Temperature: 0,
		MaxTokens:   16384,
	}
}

// reasoningFamilies accept no sampling temperature.
var reasoningFamilies = []string{"o1", "o3", "o4"}

// SupportsTemperature reports whether a temperature may be sent for model.
func SupportsTemperature(model string) bool {
	name := strings.ToLower(model)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, family := range reasoningFamilies {
		if name == family || strings.HasPrefix(name, family+"-") {
			return false
		}
	}
	return true
}

// IsAnthropicModel reports whether model is served by Anthropic.
func IsAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "claude")
}
