package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBundle(id, password string) *domain.PlanBundle {
	return &domain.PlanBundle{
		StudentID:       id,
		Password:        password,
		Phase1Prompt:    "prompt one",
		Phase1Plan:      "# Plan one",
		Phase1PDF:       []byte("%PDF-1"),
		Phase2Prompt:    "prompt two",
		Phase2Plan:      "# Plan two",
		Phase2PDF:       []byte("%PDF-2"),
		MilestonesRaw:   "<milestone1>Ship</milestone1>",
		Milestones:      []string{"Ship", "Pitch", "Scale"},
		AssistantPrompt: "You are a coach.",
		Survey: domain.NewSurveyRecord(
			domain.Answer{Key: domain.NameQuestion, Value: "Ada"},
			domain.Answer{Key: domain.EmailQuestion, Value: id},
		),
		CreatedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestSQLiteBundleRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	want := sampleBundle("ada@example.com", "0123456789abcde")
	require.NoError(t, s.SaveBundle(ctx, want))

	got, err := s.GetBundle(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, want.Password, got.Password)
	assert.Equal(t, want.Phase1PDF, got.Phase1PDF)
	assert.Equal(t, want.Milestones, got.Milestones)
	assert.Equal(t, want.Survey.Answers, got.Survey.Answers)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteSaveBundleReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.SaveBundle(ctx, sampleBundle("b@example.com", "111111111111111")))
	require.NoError(t, s.SaveBundle(ctx, sampleBundle("a@example.com", "222222222222222")))
	updated := sampleBundle("b@example.com", "333333333333333")
	updated.Milestones = []string{"only"}
	require.NoError(t, s.SaveBundle(ctx, updated))

	ids, err := s.ListStudentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, ids)

	got, err := s.GetBundle(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got.Milestones)

	pws, err := s.ListPasswords(ctx)
	require.NoError(t, err)
	assert.Len(t, pws, 2)
	assert.Contains(t, pws, "333333333333333")
}

func TestSQLiteGetBundleNotFound(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	_, err := s.GetBundle(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	err = s.SaveBundle(context.Background(), &domain.PlanBundle{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLiteCheckpointThreads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	first := []domain.StoredMessage{
		{Role: domain.RoleHuman, Content: "hi"},
		{Role: domain.RoleAI, ToolCalls: []domain.StoredToolCall{{ID: "c1", Name: "web_search", Arguments: `{"query":"x"}`}}},
		{Role: domain.RoleTool, ToolCallID: "c1", Name: "web_search", Content: "result"},
		{Role: domain.RoleAI, Content: "hello"},
	}
	require.NoError(t, s.AppendThread(ctx, "ada-1", first))
	require.NoError(t, s.AppendThread(ctx, "ada-1", []domain.StoredMessage{{Role: domain.RoleHuman, Content: "again"}}))
	require.NoError(t, s.AppendThread(ctx, "bo-1", []domain.StoredMessage{{Role: domain.RoleHuman, Content: "other"}}))
	require.NoError(t, s.AppendThread(ctx, "bo-1", nil))

	got, err := s.LoadThread(ctx, "ada-1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, first, got[:4])
	assert.Equal(t, "again", got[4].Content)

	empty, err := s.LoadThread(ctx, "nobody-1")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWithBusyRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withBusyRetry(context.Background(), "test", func() error {
		calls++
		if calls < 2 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = withBusyRetry(context.Background(), "test", func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.EqualError(t, err, "constraint failed")
	assert.Equal(t, 1, calls)
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)
	require.NoError(t, s.SaveBundle(ctx, sampleBundle("c@example.com", "aaaaaaaaaaaaaaa")))
	require.NoError(t, s.SaveBundle(ctx, sampleBundle("a@example.com", "bbbbbbbbbbbbbbb")))

	reg, err := LoadRegistry(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, reg.IDs())

	b, err := reg.Get("c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaaaaaa", b.Password)

	_, err = reg.Get("x@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ids := reg.IDs()
	ids[0] = "mutated"
	assert.Equal(t, "a@example.com", reg.IDs()[0])
}
