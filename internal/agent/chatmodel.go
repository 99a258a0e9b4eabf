package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/llm"
)

// ChatModel produces the next assistant message. onDelta, when set,
// receives text as it is generated.
type ChatModel interface {
	Generate(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool, onDelta func(string) error) (*llms.ContentChoice, error)
}

// ModelBuilder creates the chat model for a set of assistant settings.
type ModelBuilder func(settings domain.AgentSettings) (ChatModel, error)

// LangChainModel adapts a langchaingo model to ChatModel.
type LangChainModel struct {
	model       llms.Model
	name        string
	temperature float64
}

// NewLangChainModel wraps m. The temperature is dropped for model families
// that reject it.
func NewLangChainModel(m llms.Model, name string, temperature float64) *LangChainModel {
	return &LangChainModel{model: m, name: name, temperature: temperature}
}

// NewModelBuilder returns a builder that creates modelName through factory
// with the temperature of each settings snapshot.
func NewModelBuilder(factory llm.ModelFactory, modelName string) ModelBuilder {
	return func(s domain.AgentSettings) (ChatModel, error) {
		m, err := factory(modelName)
		if err != nil {
			return nil, fmt.Errorf("create chat model %s: %w", modelName, err)
		}
		return NewLangChainModel(m, modelName, s.Temperature), nil
	}
}

// Generate implements ChatModel.
func (m *LangChainModel) Generate(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool, onDelta func(string) error) (*llms.ContentChoice, error) {
	var opts []llms.CallOption
	if llm.SupportsTemperature(m.name) {
		opts = append(opts, llms.WithTemperature(m.temperature))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	if onDelta != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if isToolCallChunk(chunk) {
				return nil
			}
			return onDelta(string(chunk))
		}))
	}

	resp, err := m.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", m.name)
	}
	return resp.Choices[0], nil
}

// isToolCallChunk reports whether a streamed chunk is a serialized tool
// call list rather than reply text.
func isToolCallChunk(chunk []byte) bool {
	trimmed := bytes.TrimSpace(chunk)
	return bytes.HasPrefix(trimmed, []byte("[{")) && json.Valid(trimmed)
}

// toMessages converts the system prompt and stored thread into the
// provider message list.
func toMessages(systemPrompt string, thread []domain.StoredMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(thread)+1)
	if systemPrompt != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, m := range thread {
		switch m.Role {
		case domain.RoleHuman:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case domain.RoleAI:
			msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				msg.Parts = append(msg.Parts, llms.TextContent{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, msg)
		case domain.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})
		}
	}
	return out
}

func fromChoice(choice *llms.ContentChoice) domain.StoredMessage {
	msg := domain.StoredMessage{Role: domain.RoleAI, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, domain.StoredToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return msg
}
