package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/identity"
)

// DefaultMaxToolSteps bounds model calls within one turn.
const DefaultMaxToolSteps = 8

var tracer = otel.Tracer("github.com/upbeat-labs/learning-assistant/internal/agent")

// Agent is an immutable tool-calling assistant bound to one student and
// phase. Settings changes build a new Agent over the same checkpointer.
type Agent struct {
	model        ChatModel
	systemPrompt string
	tools        map[string]Tool
	defs         []llms.Tool
	checkpoints  Checkpointer
	maxSteps     int
	logger       *slog.Logger
}

// NewAgent binds model and tools to a checkpointer.
func NewAgent(model ChatModel, systemPrompt string, tools []Tool, checkpoints Checkpointer, maxSteps int, logger *slog.Logger) *Agent {
	if maxSteps < 1 {
		maxSteps = DefaultMaxToolSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		model:        model,
		systemPrompt: systemPrompt,
		tools:        make(map[string]Tool, len(tools)),
		checkpoints:  checkpoints,
		maxSteps:     maxSteps,
		logger:       logger,
	}
	for _, t := range tools {
		a.tools[t.Name()] = t
		a.defs = append(a.defs, t.Definition())
	}
	return a
}

// ToolNames lists the bound tools in binding order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.defs))
	for _, d := range a.defs {
		names = append(names, d.Function.Name)
	}
	return names
}

// Run executes one turn on thread: the user message, any number of tool
// rounds and the final assistant reply. emit, when set, observes text deltas
// and tool runs; an emit error abandons the turn. The turn is appended to
// the thread only when it completes.
func (a *Agent) Run(ctx context.Context, threadID, userMessage string, emit func(Event) error) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.Run", trace.WithAttributes(
		attribute.String("thread_id", threadID),
		attribute.String("student_id", identity.StudentIDFromContext(ctx)),
	))
	defer span.End()

	reply, err := a.run(ctx, threadID, userMessage, emit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return reply, err
}

func (a *Agent) run(ctx context.Context, threadID, userMessage string, emit func(Event) error) (string, error) {
	history, err := a.checkpoints.LoadThread(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("load thread %s: %w", threadID, err)
	}
	turn := []domain.StoredMessage{{Role: domain.RoleHuman, Content: userMessage}}

	for step := 1; step <= a.maxSteps; step++ {
		thread := append(history[:len(history):len(history)], turn...)

		streamed := false
		var onDelta func(string) error
		if emit != nil {
			onDelta = func(d string) error {
				if d == "" {
					return nil
				}
				streamed = true
				return emit(Event{Delta: d})
			}
		}

		choice, err := a.model.Generate(ctx, toMessages(a.systemPrompt, thread), a.defs, onDelta)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		// Models that do not stream deliver the text once, with the choice.
		if emit != nil && !streamed && choice.Content != "" {
			if err := emit(Event{Delta: choice.Content}); err != nil {
				return "", err
			}
		}

		aiMsg := fromChoice(choice)
		turn = append(turn, aiMsg)
		if len(aiMsg.ToolCalls) == 0 {
			if err := a.checkpoints.AppendThread(ctx, threadID, turn); err != nil {
				return "", fmt.Errorf("commit turn: %w", err)
			}
			return aiMsg.Content, nil
		}

		for _, call := range aiMsg.ToolCalls {
			result := a.callTool(ctx, call)
			turn = append(turn, domain.StoredMessage{
				Role:       domain.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
			if emit != nil {
				if err := emit(Event{Tool: call.Name}); err != nil {
					return "", err
				}
			}
		}
	}
	return "", fmt.Errorf("%w after %d model calls", ErrToolLoop, a.maxSteps)
}

// callTool runs one tool. Failures are reported back to the model as the
// tool result so it can recover.
func (a *Agent) callTool(ctx context.Context, call domain.StoredToolCall) string {
	t, ok := a.tools[call.Name]
	if !ok {
		return fmt.Sprintf("Error: %s is not a valid tool.", call.Name)
	}
	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}
