package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

const (
	learningStateFile = "state_variables.json"
	agentSettingsFile = "agent_settings.json"
)

// FileStateStore keeps mutable per-student state as JSON files under
// {Dir}/{student}/. Every write replaces the file atomically, so readers
// observe either the old or the new content.
type FileStateStore struct {
	dir string
	mu  sync.Mutex

	// rename is swapped in tests to simulate a crash before the commit point.
	rename func(oldpath, newpath string) error
}

// NewFileStateStore returns a store rooted at dir.
func NewFileStateStore(dir string) *FileStateStore {
	return &FileStateStore{dir: dir, rename: os.Rename}
}

func (s *FileStateStore) path(studentID, name string) (string, error) {
	if studentID == "" || studentID == "." || studentID == ".." ||
		strings.ContainsAny(studentID, `/\`) {
		return "", fmt.Errorf("%w: unusable student id %q", domain.ErrInvalidInput, studentID)
	}
	return filepath.Join(s.dir, studentID, name), nil
}

// LoadLearningState returns the stored milestone progress. When none exists
// it persists and returns a fresh state with every milestone open.
func (s *FileStateStore) LoadLearningState(studentID string, milestones []string) (domain.LearningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(studentID, learningStateFile)
	if err != nil {
		return domain.LearningState{}, err
	}
	return s.loadLearningState(p, milestones)
}

func (s *FileStateStore) loadLearningState(p string, milestones []string) (domain.LearningState, error) {
	var st domain.LearningState
	found, err := readJSON(p, &st)
	if err != nil {
		return domain.LearningState{}, err
	}
	if found {
		if err := st.Validate(); err != nil {
			return domain.LearningState{}, fmt.Errorf("%w: %s: %w", domain.ErrStateIO, p, err)
		}
		return st, nil
	}

	st = domain.NewLearningState(milestones)
	if err := s.writeJSON(p, st); err != nil {
		return domain.LearningState{}, err
	}
	return st, nil
}

// UpdateMilestoneStates replaces the completion flags of a student. The
// number of states must match the stored milestone labels.
func (s *FileStateStore) UpdateMilestoneStates(studentID string, milestones []string, states []bool) (domain.LearningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(studentID, learningStateFile)
	if err != nil {
		return domain.LearningState{}, err
	}
	current, err := s.loadLearningState(p, milestones)
	if err != nil {
		return domain.LearningState{}, err
	}
	next, err := current.WithStates(states)
	if err != nil {
		return current, err
	}
	if err := s.writeJSON(p, next); err != nil {
		return current, err
	}
	return next, nil
}

// LoadAgentSettings returns stored settings and whether they existed.
func (s *FileStateStore) LoadAgentSettings(studentID string) (domain.AgentSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(studentID, agentSettingsFile)
	if err != nil {
		return domain.AgentSettings{}, false, err
	}
	var settings domain.AgentSettings
	found, err := readJSON(p, &settings)
	if err != nil || !found {
		return domain.AgentSettings{}, false, err
	}
	return settings.Clamped(), true, nil
}

// SaveAgentSettings persists settings with the temperature clamped to [0, 1].
func (s *FileStateStore) SaveAgentSettings(studentID string, settings domain.AgentSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(studentID, agentSettingsFile)
	if err != nil {
		return err
	}
	return s.writeJSON(p, settings.Clamped())
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", domain.ErrStateIO, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", domain.ErrStateIO, path, err)
	}
	return true, nil
}

// writeJSON writes to a temp file in the target directory, syncs it and
// renames it over the target. The temp file is removed on any failure.
func (s *FileStateStore) writeJSON(path string, v any) (err error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrStateIO, path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrStateIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrStateIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrStateIO, tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", domain.ErrStateIO, tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrStateIO, tmpName, err)
	}
	if err = s.rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", domain.ErrStateIO, path, err)
	}
	return nil
}
