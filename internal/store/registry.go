package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Registry is the read-only in-memory view of every plan bundle the server
// knows about. It is loaded once at startup.
type Registry struct {
	bundles map[string]*domain.PlanBundle
	ids     []string
}

// NewRegistry builds a registry from already loaded bundles.
func NewRegistry(bundles ...*domain.PlanBundle) *Registry {
	r := &Registry{bundles: make(map[string]*domain.PlanBundle, len(bundles))}
	for _, b := range bundles {
		if b == nil {
			continue
		}
		if _, dup := r.bundles[b.StudentID]; !dup {
			r.ids = append(r.ids, b.StudentID)
		}
		r.bundles[b.StudentID] = b
	}
	sort.Strings(r.ids)
	return r
}

// LoadRegistry reads every bundle from repo.
func LoadRegistry(ctx context.Context, repo BundleRepository) (*Registry, error) {
	ids, err := repo.ListStudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	bundles := make([]*domain.PlanBundle, 0, len(ids))
	for _, id := range ids {
		b, err := repo.GetBundle(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	return NewRegistry(bundles...), nil
}

// Get returns the bundle of a student or domain.ErrNotFound.
func (r *Registry) Get(studentID string) (*domain.PlanBundle, error) {
	b, ok := r.bundles[studentID]
	if !ok {
		return nil, fmt.Errorf("student %q: %w", studentID, domain.ErrNotFound)
	}
	return b, nil
}

// IDs returns the known student ids in ascending order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of known students.
func (r *Registry) Len() int { return len(r.ids) }
