package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/upbeat-labs/learning-assistant/internal/api"
	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/identity"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// RateLimiter implements a per-student token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key per minute, with bursts
// of the same size. perMinute < 1 disables limiting. It starts the
// background eviction goroutine; Stop ends it.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		idle:     time.Minute,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if perMinute < 1 {
		rl.limit = rate.Inf
	} else {
		rl.limit = rate.Every(time.Minute / time.Duration(perMinute))
		rl.burst = perMinute
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()
	return e.limiter.Allow()
}

// Len reports how many keys are tracked.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// evictIdle drops keys unseen for a full window. A bucket idle that long
// has refilled, so a fresh limiter behaves the same.
func (r *RateLimiter) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idle)
	for key, e := range r.limiters {
		if !e.lastSeen.After(cutoff) {
			delete(r.limiters, key)
		}
	}
}

// startEviction periodically removes idle keys, preventing unbounded
// memory growth.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.idle)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.evictIdle()
			}
		}
	}()
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	RateLimit          int
	MaxRequestBodySize int64
	ConversationLog    ConversationLogger
	Logger             *slog.Logger
}

// Handler serves the chat and assistant settings endpoints.
type Handler struct {
	manager     *Manager
	rateLimiter *RateLimiter
	maxBody     int64
	log         ConversationLogger
	logger      *slog.Logger
}

// NewHandler creates a handler over manager.
func NewHandler(manager *Manager, cfg HandlerConfig) *Handler {
	if cfg.ConversationLog == nil {
		cfg.ConversationLog = noopConversationLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		manager:     manager,
		rateLimiter: NewRateLimiter(cfg.RateLimit),
		maxBody:     cfg.MaxRequestBodySize,
		log:         cfg.ConversationLog,
		logger:      cfg.Logger,
	}
}

// RegisterRoutes registers the assistant routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	r.Get("/api/chat/stream", h.HandleStream)
	r.Post("/api/update-agent-settings", h.HandleUpdateSettings)
	r.Get("/api/reset-agent-settings", h.HandleResetSettings)
}

// Close stops the rate limiter and flushes the conversation log.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if err := h.log.Close(); err != nil {
		h.logger.Warn("failed to close conversation logger", "error", err)
	}
}

// HandleChat handles POST /api/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !h.manager.Known(req.UserID) {
		api.Error(w, http.StatusNotFound, "user not found")
		return
	}
	if !h.rateLimiter.Allow(req.UserID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	reqID := requestID(r)
	h.logUserMessage("chat_http", req.UserID, req.Message, reqID)

	ctx := identity.WithStudentID(r.Context(), req.UserID)
	reply, err := h.manager.Chat(ctx, req.UserID, req.Message)
	if err != nil {
		h.logger.Error("chat failed", "user_id", req.UserID, "error", err)
		h.logAssistantMessage("chat_http", req.UserID, "", 0, true, err.Error(), reqID)
		h.writeError(w, err)
		return
	}
	h.logAssistantMessage("chat_http", req.UserID, reply, 1, false, "", reqID)
	api.JSON(w, http.StatusOK, ChatResponse{Response: reply})
}

// HandleStream handles GET /api/chat/stream?user_id=&message=. Each event
// carries the JSON-encoded reply so far; the stream ends with [DONE].
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	message := r.URL.Query().Get("message")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !h.manager.Known(userID) {
		api.Error(w, http.StatusNotFound, "user not found")
		return
	}
	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.manager.ChatStream(identity.WithStudentID(r.Context(), userID), userID, message)
	if err != nil {
		h.writeError(w, err)
		return
	}

	reqID := requestID(r)
	h.logUserMessage("chat_stream", userID, message, reqID)
	h.logger.Info("chat stream started", "user_id", userID, "message_length", len(message))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		drain(events)
		return
	}
	flusher.Flush()

	var (
		last      string
		snapshots int
		streamErr string
	)
	for ev := range events {
		if ev.Err != nil {
			streamErr = ev.Err.Error()
			if err := writeSSE(w, "error", jsonString(userFacingError(ev.Err))); err != nil {
				h.logger.Warn("failed to write SSE error event", "error", err)
			}
			flusher.Flush()
			continue
		}
		last = ev.Snapshot
		snapshots++
		if err := writeSSE(w, "", jsonString(ev.Snapshot)); err != nil {
			h.logger.Warn("failed to write SSE message event", "error", err)
			streamErr = err.Error()
			drain(events)
			break
		}
		flusher.Flush()
	}

	partial := streamErr != "" || r.Context().Err() != nil
	h.logAssistantMessage("chat_stream", userID, last, snapshots, partial, streamErr, reqID)
	if r.Context().Err() != nil {
		return
	}
	if err := writeSSE(w, "", "[DONE]"); err != nil {
		h.logger.Warn("failed to write SSE done event", "error", err)
		return
	}
	flusher.Flush()
}

// HandleUpdateSettings handles POST /api/update-agent-settings.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	saved, err := h.manager.UpdateSettings(r.Context(), req.UserID, domain.AgentSettings{
		SystemPrompt:            req.SystemPrompt,
		Temperature:             req.Temperature,
		UsePlanTool:             req.UsePlanTool,
		UseSearchTool:           req.UseSearchTool,
		UseLearningMaterialTool: req.UseLearningMaterialTool,
		UseMilestonesTool:       req.UseMilestonesTool,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("agent settings updated", "user_id", req.UserID, "saved", saved)
	api.JSON(w, http.StatusOK, map[string]bool{"success": saved})
}

// HandleResetSettings handles GET /api/reset-agent-settings?user_id=&reset=.
// Without reset it only reports the current settings.
func (h *Handler) HandleResetSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))

	var (
		settings domain.AgentSettings
		success  = true
		err      error
	)
	if reset {
		settings, success, err = h.manager.ResetSettings(r.Context(), userID)
	} else {
		settings, err = h.manager.Settings(r.Context(), userID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"success":  success,
		"settings": settings,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		api.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrInvalidInput):
		api.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.Error(w, http.StatusServiceUnavailable, "request canceled")
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, ErrToolLoop):
		api.Error(w, http.StatusBadGateway, userFacingError(err))
	default:
		api.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) logUserMessage(channel, userID, message, reqID string) {
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     userID,
		SessionID:  ThreadID(userID),
		Channel:    channel,
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: message,
		Content:    cleanForReadability(message),
		Meta: map[string]any{
			"request_id": reqID,
		},
	})
}

func (h *Handler) logAssistantMessage(channel, userID, content string, snapshots int, partial bool, streamErr, reqID string) {
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     userID,
		SessionID:  ThreadID(userID),
		Channel:    channel,
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta: map[string]any{
			"stream_chunks": snapshots,
			"partial":       partial,
			"stream_error":  streamErr,
			"request_id":    reqID,
		},
	})
}

// userFacingError hides provider details behind the error category.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, ErrToolLoop):
		return "the assistant could not finish this answer, please rephrase"
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "the assistant is unavailable right now, please try again"
	default:
		return "the assistant failed to answer"
	}
}

func requestID(r *http.Request) string {
	if id := chiMiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// drain consumes the rest of a stream so its producer can exit.
func drain(events <-chan StreamEvent) {
	for range events {
	}
}

// writeSSE writes one event; an empty event name sends a default message.
func writeSSE(w io.Writer, event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	fmt.Fprintf(&b, "data: %s\n\n", data)
	_, err := io.WriteString(w, b.String())
	return err
}
