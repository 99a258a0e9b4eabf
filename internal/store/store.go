// Package store provides persistence for plan bundles, conversation
// checkpoints and per-student state files.
package store

import (
	"context"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// BundleRepository persists generated plan bundles.
type BundleRepository interface {
	// SaveBundle creates or replaces the bundle of bundle.StudentID.
	SaveBundle(ctx context.Context, bundle *domain.PlanBundle) error

	// GetBundle retrieves a bundle. Unknown ids return domain.ErrNotFound.
	GetBundle(ctx context.Context, studentID string) (*domain.PlanBundle, error)

	// ListStudentIDs returns every stored student id in ascending order.
	ListStudentIDs(ctx context.Context) ([]string, error)

	// ListPasswords returns every credential already handed out.
	ListPasswords(ctx context.Context) (map[string]struct{}, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// CheckpointRepository persists conversation threads.
type CheckpointRepository interface {
	// LoadThread returns the messages of a thread in insertion order.
	LoadThread(ctx context.Context, threadID string) ([]domain.StoredMessage, error)

	// AppendThread appends messages to a thread atomically.
	AppendThread(ctx context.Context, threadID string, msgs []domain.StoredMessage) error
}
