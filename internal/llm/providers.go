package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// ModelFactory builds a provider client for a model id.
type ModelFactory func(model string) (llms.Model, error)

// Credentials holds provider API keys.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
}

// NewProviderFactory routes claude models to Anthropic and everything else to OpenAI.
func NewProviderFactory(creds Credentials) ModelFactory {
	return func(model string) (llms.Model, error) {
		if IsAnthropicModel(model) {
			opts := []anthropic.Option{anthropic.WithModel(model)}
			if creds.AnthropicKey != "" {
				opts = append(opts, anthropic.WithToken(creds.AnthropicKey))
			}
			client, err := anthropic.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("create anthropic client for %s: %w", model, err)
			}
			return client, nil
		}

		opts := []openai.Option{openai.WithModel(model)}
		if creds.OpenAIKey != "" {
			opts = append(opts, openai.WithToken(creds.OpenAIKey))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client for %s: %w", model, err)
		}
		return client, nil
	}
}
