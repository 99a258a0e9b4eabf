package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// ConversationLogConfig controls the per-student conversation transcript.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one NDJSON line of a transcript.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records chat transcripts without blocking requests.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewConversationLogger returns a logger writing {dir}/{user}/{session}.ndjson
// from a background goroutine. A disabled config yields a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

// Log enqueues event. Events are dropped when the queue is full.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event", "user_id", event.UserID, "event_type", event.EventType)
	}
}

// Close drains the queue and stops the writer.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write conversation log", "user_id", event.UserID, "error", err)
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	dir := filepath.Join(l.dir, safePathPart(event.UserID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user log dir: %w", err)
	}
	path := filepath.Join(dir, safePathPart(event.SessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9@._+-]`)

func safePathPart(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

var (
	ansiEscape   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// cleanForReadability strips terminal escapes and control characters.
func cleanForReadability(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = controlChars.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
