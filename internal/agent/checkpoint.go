package agent

import (
	"context"
	"sync"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Checkpointer stores conversation threads. store.SQLiteStore implements it
// for durable memory.
type Checkpointer interface {
	LoadThread(ctx context.Context, threadID string) ([]domain.StoredMessage, error)
	AppendThread(ctx context.Context, threadID string, msgs []domain.StoredMessage) error
}

// MemoryCheckpointer keeps threads for the process lifetime.
type MemoryCheckpointer struct {
	mu      sync.RWMutex
	threads map[string][]domain.StoredMessage
}

// NewMemoryCheckpointer returns an empty in-memory checkpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{threads: make(map[string][]domain.StoredMessage)}
}

// LoadThread returns a copy of the thread.
func (c *MemoryCheckpointer) LoadThread(_ context.Context, threadID string) ([]domain.StoredMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.threads[threadID]
	out := make([]domain.StoredMessage, len(src))
	copy(out, src)
	return out, nil
}

// AppendThread appends msgs to the thread.
func (c *MemoryCheckpointer) AppendThread(_ context.Context, threadID string, msgs []domain.StoredMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[threadID] = append(c.threads[threadID], msgs...)
	return nil
}
