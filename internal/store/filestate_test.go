package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

var milestones = []string{"Validate idea", "Build MVP", "Pitch"}

func TestLoadLearningStateCreatesAndPersists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileStateStore(dir)

	st, err := s.LoadLearningState("ada@example.com", milestones)
	require.NoError(t, err)
	assert.Equal(t, milestones, st.Labels)
	assert.Equal(t, []bool{false, false, false}, st.States)

	data, err := os.ReadFile(filepath.Join(dir, "ada@example.com", "state_variables.json"))
	require.NoError(t, err)
	var onDisk domain.LearningState
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, st, onDisk)

	// Labels come from disk once the state exists.
	again, err := s.LoadLearningState("ada@example.com", []string{"other"})
	require.NoError(t, err)
	assert.Equal(t, milestones, again.Labels)
}

func TestUpdateMilestoneStates(t *testing.T) {
	t.Parallel()
	s := NewFileStateStore(t.TempDir())

	st, err := s.UpdateMilestoneStates("ada@example.com", milestones, []bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, st.States)

	reloaded, err := s.LoadLearningState("ada@example.com", milestones)
	require.NoError(t, err)
	assert.Equal(t, st, reloaded)

	_, err = s.UpdateMilestoneStates("ada@example.com", milestones, []bool{true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	reloaded, err = s.LoadLearningState("ada@example.com", milestones)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, reloaded.States, "rejected update must not change state")
}

func TestCrashBeforeRenameKeepsPreviousState(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileStateStore(dir)

	_, err := s.UpdateMilestoneStates("ada@example.com", milestones, []bool{true, false, false})
	require.NoError(t, err)

	s.rename = func(string, string) error { return errors.New("power loss") }
	_, err = s.UpdateMilestoneStates("ada@example.com", milestones, []bool{true, true, true})
	require.ErrorIs(t, err, domain.ErrStateIO)

	s.rename = os.Rename
	st, err := s.LoadLearningState("ada@example.com", milestones)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, st.States)

	entries, err := os.ReadDir(filepath.Join(dir, "ada@example.com"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestCorruptStateIsStateIOError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileStateStore(dir)

	p := filepath.Join(dir, "ada@example.com", "state_variables.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(`{"labels":["a"],"states":[]}`), 0o600))

	_, err := s.LoadLearningState("ada@example.com", milestones)
	assert.ErrorIs(t, err, domain.ErrStateIO)

	require.NoError(t, os.WriteFile(p, []byte(`{not json`), 0o600))
	_, err = s.LoadLearningState("ada@example.com", milestones)
	assert.ErrorIs(t, err, domain.ErrStateIO)
}

func TestAgentSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewFileStateStore(t.TempDir())

	_, found, err := s.LoadAgentSettings("ada@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	settings := domain.DefaultAgentSettings("  be helpful  ")
	settings.Temperature = 1.7
	settings.UseSearchTool = false
	require.NoError(t, s.SaveAgentSettings("ada@example.com", settings))

	got, found, err := s.LoadAgentSettings("ada@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "be helpful", got.SystemPrompt)
	assert.InDelta(t, 1.0, got.Temperature, 1e-9)
	assert.False(t, got.UseSearchTool)
	assert.True(t, got.UsePlanTool)
}

func TestRejectsPathLikeStudentIDs(t *testing.T) {
	t.Parallel()
	s := NewFileStateStore(t.TempDir())

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.LoadLearningState(id, milestones)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "id %q", id)
	}
}
