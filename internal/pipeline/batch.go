package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Sink receives each bundle as soon as it is complete.
type Sink interface {
	SaveBundle(ctx context.Context, bundle *domain.PlanBundle) error
}

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// Concurrency bounds the number of students generated at once. Default 1.
	Concurrency int
	Sink        Sink
	// ExistingPasswords are credentials that must not be reissued.
	ExistingPasswords map[string]struct{}
}

// BatchReport summarizes a batch run.
type BatchReport struct {
	Generated []string
	// Failed maps a student id (or survey position when the id is unknown)
	// to the error that aborted it.
	Failed map[string]error
	// Duplicates lists survey positions skipped because their student id
	// was already taken by an earlier record.
	Duplicates []int
}

// RunBatch generates a bundle for every survey. A failing student is
// logged and reported without stopping the others. When two surveys share
// a student id the first one wins. The returned error is only set when ctx
// is canceled.
func (g *Generator) RunBatch(ctx context.Context, surveys []domain.SurveyRecord, opts BatchOptions) (*BatchReport, error) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	passwords := NewPasswordPool(opts.ExistingPasswords)
	report := &BatchReport{Failed: make(map[string]error)}
	var mu sync.Mutex

	seen := make(map[string]struct{}, len(surveys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, survey := range surveys {
		key, err := batchKey(i, survey)
		if err != nil {
			g.logger.Error("survey rejected", "position", i+1, "error", err)
			report.Failed[key] = err
			continue
		}
		if _, dup := seen[key]; dup {
			g.logger.Warn("duplicate student id, keeping first", "student_id", key, "position", i+1)
			report.Duplicates = append(report.Duplicates, i+1)
			continue
		}
		seen[key] = struct{}{}

		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			g.logger.Info("generating plan bundle", "student_id", key, "position", i+1, "total", len(surveys))

			bundle, err := g.GenerateBundle(egCtx, survey, passwords)
			if err == nil && opts.Sink != nil {
				if saveErr := opts.Sink.SaveBundle(egCtx, bundle); saveErr != nil {
					err = fmt.Errorf("save bundle: %w", saveErr)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.logger.Error("plan bundle failed", "student_id", key, "error", err)
				report.Failed[key] = err
				return nil
			}
			g.logger.Info("plan bundle created", "student_id", key)
			report.Generated = append(report.Generated, key)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func batchKey(i int, survey domain.SurveyRecord) (string, error) {
	id, err := studentIDOf(survey)
	if err != nil {
		return fmt.Sprintf("#%d", i+1), err
	}
	return id, nil
}
