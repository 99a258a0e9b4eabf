package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// DefaultMaxAttempts bounds provider calls per Invoke.
const DefaultMaxAttempts = 3

var errEmptyCompletion = errors.New("empty completion")

// Gateway invokes LLMs with a fresh request per call and no caching.
type Gateway struct {
	factory     ModelFactory
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer

	mu     sync.Mutex
	models map[string]llms.Model
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxAttempts sets the retry bound. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n >= 1 {
			g.maxAttempts = n
		}
	}
}

// WithBackoff sets the minimum pause between attempts.
func WithBackoff(d time.Duration) Option {
	return func(g *Gateway) { g.backoff = d }
}

// WithLogger sets the logger used for attempt failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway that builds provider clients with factory.
func NewGateway(factory ModelFactory, opts ...Option) *Gateway {
	g := &Gateway{
		factory:     factory,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/upbeat-labs/learning-assistant/internal/llm"),
		models:      make(map[string]llms.Model),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke sends prompt as a single user message and returns the completion text.
// Provider errors and empty completions are retried up to the attempt bound,
// after which the returned error wraps domain.ErrLLMUnavailable.
func (g *Gateway) Invoke(ctx context.Context, prompt string, cfg ModelConfig) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.Invoke", trace.WithAttributes(
		attribute.String("llm.model", cfg.Model),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	model, err := g.model(cfg.Model)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	var pace *rate.Limiter
	if g.backoff > 0 {
		pace = rate.NewLimiter(rate.Every(g.backoff), 1)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if pace != nil {
			if err := pace.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		} else if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		text, err := g.call(ctx, model, prompt, cfg)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			g.logger.Debug("LLM call succeeded", "model", cfg.Model, "attempt", attempt, "duration", time.Since(start))
			return text, nil
		}
		lastErr = err
		g.logger.Warn("LLM call failed", "model", cfg.Model, "attempt", attempt, "max_attempts", g.maxAttempts, "error", err)
	}

	span.SetStatus(codes.Error, "retries exhausted")
	span.RecordError(lastErr)
	return "", fmt.Errorf("%w: %s after %d attempts: %w", domain.ErrLLMUnavailable, cfg.Model, g.maxAttempts, lastErr)
}

func (g *Gateway) call(ctx context.Context, model llms.Model, prompt string, cfg ModelConfig) (string, error) {
	resp, err := model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		CallOptions(cfg)...,
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// CallOptions converts cfg into langchaingo call options. The temperature is
// left out entirely for reasoning model families.
func CallOptions(cfg ModelConfig) []llms.CallOption {
	var opts []llms.CallOption
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if SupportsTemperature(cfg.Model) {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.ReasoningBudget > 0 {
		opts = append(opts, llms.WithMetadata(map[string]any{
			"thinking_budget_tokens": cfg.ReasoningBudget,
		}))
	}
	return opts
}

func (g *Gateway) model(name string) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.models[name]; ok {
		return m, nil
	}
	if g.factory == nil {
		return nil, fmt.Errorf("no model factory configured")
	}
	m, err := g.factory(name)
	if err != nil {
		return nil, err
	}
	g.models[name] = m
	return m, nil
}
