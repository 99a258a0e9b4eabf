package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/shared"
)

const (
	maxBusyRetries = 3
	baseBusyDelay  = 100 * time.Millisecond
)

// SQLiteStore implements BundleRepository and CheckpointRepository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ BundleRepository     = (*SQLiteStore)(nil)
	_ CheckpointRepository = (*SQLiteStore)(nil)
)

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the server read while the planner writes.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS plan_bundles (
		student_id TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		phase1_prompt TEXT NOT NULL,
		phase1_plan TEXT NOT NULL,
		phase1_pdf BLOB,
		phase2_prompt TEXT NOT NULL,
		phase2_plan TEXT NOT NULL,
		phase2_pdf BLOB,
		milestones_raw TEXT NOT NULL,
		milestones_json TEXT NOT NULL,
		assistant_prompt TEXT NOT NULL,
		survey_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_checkpoints (
		thread_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		message_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (thread_id, seq)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withBusyRetry runs fn, retrying SQLITE_BUSY failures with exponential
// backoff: 100ms, 200ms, 400ms.
func withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxBusyRetries-1 {
			break
		}
		delay := baseBusyDelay * time.Duration(1<<i)
		slog.Debug("sqlite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// SaveBundle creates or replaces a plan bundle.
func (s *SQLiteStore) SaveBundle(ctx context.Context, b *domain.PlanBundle) error {
	if b == nil || b.StudentID == "" {
		return fmt.Errorf("%w: bundle without student id", domain.ErrInvalidInput)
	}
	milestones, err := json.Marshal(b.Milestones)
	if err != nil {
		return fmt.Errorf("encode milestones: %w", err)
	}
	survey, err := json.Marshal(b.Survey)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `
	INSERT INTO plan_bundles (
		student_id, password, phase1_prompt, phase1_plan, phase1_pdf,
		phase2_prompt, phase2_plan, phase2_pdf, milestones_raw, milestones_json,
		assistant_prompt, survey_json, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(student_id) DO UPDATE SET
		password = excluded.password,
		phase1_prompt = excluded.phase1_prompt,
		phase1_plan = excluded.phase1_plan,
		phase1_pdf = excluded.phase1_pdf,
		phase2_prompt = excluded.phase2_prompt,
		phase2_plan = excluded.phase2_plan,
		phase2_pdf = excluded.phase2_pdf,
		milestones_raw = excluded.milestones_raw,
		milestones_json = excluded.milestones_json,
		assistant_prompt = excluded.assistant_prompt,
		survey_json = excluded.survey_json,
		created_at = excluded.created_at`

	err = withBusyRetry(ctx, "save bundle", func() error {
		_, err := s.db.ExecContext(ctx, query,
			b.StudentID, b.Password, b.Phase1Prompt, b.Phase1Plan, b.Phase1PDF,
			b.Phase2Prompt, b.Phase2Plan, b.Phase2PDF, b.MilestonesRaw, string(milestones),
			b.AssistantPrompt, string(survey), created.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", b.StudentID, err)
	}
	return nil
}

// GetBundle retrieves the bundle of one student.
func (s *SQLiteStore) GetBundle(ctx context.Context, studentID string) (*domain.PlanBundle, error) {
	query := `
		SELECT student_id, password, phase1_prompt, phase1_plan, phase1_pdf,
		       phase2_prompt, phase2_plan, phase2_pdf, milestones_raw, milestones_json,
		       assistant_prompt, survey_json, created_at
		FROM plan_bundles WHERE student_id = ?`

	var (
		b                domain.PlanBundle
		milestones, surv string
		createdAt        int64
	)
	err := s.db.QueryRowContext(ctx, query, studentID).Scan(
		&b.StudentID, &b.Password, &b.Phase1Prompt, &b.Phase1Plan, &b.Phase1PDF,
		&b.Phase2Prompt, &b.Phase2Plan, &b.Phase2PDF, &b.MilestonesRaw, &milestones,
		&b.AssistantPrompt, &surv, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bundle %s: %w", studentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan bundle row: %w", err)
	}
	if err := json.Unmarshal([]byte(milestones), &b.Milestones); err != nil {
		return nil, fmt.Errorf("decode milestones of %s: %w", studentID, err)
	}
	if err := json.Unmarshal([]byte(surv), &b.Survey); err != nil {
		return nil, fmt.Errorf("decode survey of %s: %w", studentID, err)
	}
	b.CreatedAt = time.Unix(createdAt, 0)
	return &b, nil
}

// ListStudentIDs returns the stored student ids in ascending order.
func (s *SQLiteStore) ListStudentIDs(ctx context.Context) ([]string, error) {
	return s.listColumn(ctx, `SELECT student_id FROM plan_bundles ORDER BY student_id`)
}

// ListPasswords returns the set of stored credentials.
func (s *SQLiteStore) ListPasswords(ctx context.Context) (map[string]struct{}, error) {
	list, err := s.listColumn(ctx, `SELECT password FROM plan_bundles`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(list))
	for _, pw := range list {
		out[pw] = struct{}{}
	}
	return out, nil
}

func (s *SQLiteStore) listColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query bundles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close bundle rows", "error", closeErr)
		}
	}()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan bundle row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundles: %w", err)
	}
	return out, nil
}

// LoadThread returns the checkpointed messages of a conversation thread.
func (s *SQLiteStore) LoadThread(ctx context.Context, threadID string) ([]domain.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_json FROM agent_checkpoints WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close checkpoint rows", "error", closeErr)
		}
	}()

	var msgs []domain.StoredMessage
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		var m domain.StoredMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode checkpoint of %s: %w", threadID, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return msgs, nil
}

// AppendThread appends messages to a thread in a single transaction.
func (s *SQLiteStore) AppendThread(ctx context.Context, threadID string, msgs []domain.StoredMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	encoded := make([]string, len(msgs))
	for i, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode checkpoint: %w", err)
		}
		encoded[i] = string(raw)
	}

	err := withBusyRetry(ctx, "append checkpoint", func() error {
		return s.appendOnce(ctx, threadID, encoded)
	})
	if err != nil {
		return fmt.Errorf("append thread %s: %w", threadID, err)
	}
	return nil
}

func (s *SQLiteStore) appendOnce(ctx context.Context, threadID string, encoded []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM agent_checkpoints WHERE thread_id = ?`, threadID,
	).Scan(&next); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := time.Now().Unix()
	for i, raw := range encoded {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agent_checkpoints (thread_id, seq, message_json, created_at) VALUES (?, ?, ?, ?)`,
			threadID, next+int64(i), raw, now,
		); err != nil {
			return fmt.Errorf("insert checkpoint: %w", err)
		}
	}
	return tx.Commit()
}
