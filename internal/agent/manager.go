package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/search"
)

// BundleSource resolves a student's plan bundle. store.Registry implements it.
type BundleSource interface {
	Get(studentID string) (*domain.PlanBundle, error)
}

// SettingsStore persists assistant settings. store.FileStateStore implements it.
type SettingsStore interface {
	LoadAgentSettings(studentID string) (domain.AgentSettings, bool, error)
	SaveAgentSettings(studentID string, settings domain.AgentSettings) error
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Bundles      BundleSource
	Settings     SettingsStore
	Checkpoints  Checkpointer
	NewModel     ModelBuilder
	Searcher     search.Searcher
	Catalog      []domain.Material
	Phase        func() domain.Phase
	MaxToolSteps int
	Logger       *slog.Logger
}

// Manager owns one Session per student for the process lifetime.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session is one student's assistant: a settings snapshot, an agent per
// phase and a conversation thread shared by both agents.
type Session struct {
	StudentID string
	ThreadID  string

	// turn admits one turn at a time.
	turn chan struct{}

	mu       sync.RWMutex
	settings domain.AgentSettings
	agents   [2]*Agent
}

// NewManager returns a manager with no sessions.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Checkpoints == nil {
		cfg.Checkpoints = NewMemoryCheckpointer()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Phase == nil {
		cfg.Phase = func() domain.Phase { return domain.PhaseOnboarding }
	}
	return &Manager{cfg: cfg, sessions: make(map[string]*Session)}
}

// ThreadID is the conversation thread of a student.
func ThreadID(studentID string) string { return studentID + "-1" }

// Known reports whether studentID has a plan bundle.
func (m *Manager) Known(studentID string) bool {
	_, err := m.cfg.Bundles.Get(studentID)
	return err == nil
}

// Session returns the student's session, creating it from persisted
// settings (or the defaults) on first use.
func (m *Manager) Session(_ context.Context, studentID string) (*Session, error) {
	bundle, err := m.cfg.Bundles.Get(studentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[studentID]; ok {
		return s, nil
	}

	settings := domain.DefaultAgentSettings(bundle.AssistantPrompt)
	if m.cfg.Settings != nil {
		stored, found, err := m.cfg.Settings.LoadAgentSettings(studentID)
		switch {
		case err != nil:
			m.cfg.Logger.Warn("failed to load agent settings, using defaults", "student_id", studentID, "error", err)
		case found:
			settings = stored
		}
	}

	s := &Session{
		StudentID: studentID,
		ThreadID:  ThreadID(studentID),
		turn:      make(chan struct{}, 1),
	}
	if err := m.rebuild(s, settings); err != nil {
		return nil, err
	}
	m.sessions[studentID] = s
	m.cfg.Logger.Info("agent session created", "student_id", studentID, "thread_id", s.ThreadID)
	return s, nil
}

// rebuild replaces both phase agents. The thread is untouched.
func (m *Manager) rebuild(s *Session, settings domain.AgentSettings) error {
	settings = settings.Clamped()
	model, err := m.cfg.NewModel(settings)
	if err != nil {
		return fmt.Errorf("build agent for %s: %w", s.StudentID, err)
	}

	var agents [2]*Agent
	for i, phase := range []domain.Phase{domain.PhaseOnboarding, domain.PhaseTraining} {
		tools := buildTools(phase, s.StudentID, m.cfg.Bundles, m.cfg.Catalog, m.cfg.Searcher, settings)
		agents[i] = NewAgent(model, settings.SystemPrompt, tools, m.cfg.Checkpoints, m.cfg.MaxToolSteps, m.cfg.Logger)
	}

	s.mu.Lock()
	s.settings = settings
	s.agents = agents
	s.mu.Unlock()
	return nil
}

// Settings returns the session's current settings.
func (s *Session) Settings() domain.AgentSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Agent returns the agent serving phase.
func (s *Session) Agent(phase domain.Phase) *Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if phase == domain.PhaseOnboarding {
		return s.agents[0]
	}
	return s.agents[1]
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() { <-s.turn }

// Settings returns the current settings of a student.
func (m *Manager) Settings(ctx context.Context, studentID string) (domain.AgentSettings, error) {
	s, err := m.Session(ctx, studentID)
	if err != nil {
		return domain.AgentSettings{}, err
	}
	return s.Settings(), nil
}

// UpdateSettings persists settings and rebuilds the student's agents. The
// returned flag reports whether persisting succeeded; the agents are
// rebuilt either way.
func (m *Manager) UpdateSettings(ctx context.Context, studentID string, settings domain.AgentSettings) (bool, error) {
	s, err := m.Session(ctx, studentID)
	if err != nil {
		return false, err
	}
	settings = settings.Clamped()
	saved := m.persist(studentID, settings)
	if err := m.rebuild(s, settings); err != nil {
		return false, err
	}
	return saved, nil
}

// ResetSettings restores the default settings, persists them and rebuilds
// the agents.
func (m *Manager) ResetSettings(ctx context.Context, studentID string) (domain.AgentSettings, bool, error) {
	bundle, err := m.cfg.Bundles.Get(studentID)
	if err != nil {
		return domain.AgentSettings{}, false, err
	}
	defaults := domain.DefaultAgentSettings(bundle.AssistantPrompt)
	saved, err := m.UpdateSettings(ctx, studentID, defaults)
	if err != nil {
		return domain.AgentSettings{}, false, err
	}
	return defaults, saved, nil
}

func (m *Manager) persist(studentID string, settings domain.AgentSettings) bool {
	if m.cfg.Settings == nil {
		return true
	}
	if err := m.cfg.Settings.SaveAgentSettings(studentID, settings); err != nil {
		m.cfg.Logger.Error("failed to save agent settings", "student_id", studentID, "error", err)
		return false
	}
	return true
}

// Chat runs one turn and returns the final reply.
func (m *Manager) Chat(ctx context.Context, studentID, message string) (string, error) {
	s, err := m.Session(ctx, studentID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	return s.Agent(m.cfg.Phase()).Run(ctx, s.ThreadID, message, nil)
}

// ChatStream runs one turn in the background and returns cumulative
// snapshots of the reply. The channel closes when the turn ends; a failed
// turn sends one final event carrying the error. Canceling ctx abandons the
// turn without committing it.
func (m *Manager) ChatStream(ctx context.Context, studentID, message string) (<-chan StreamEvent, error) {
	s, err := m.Session(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)

		send := func(ev StreamEvent) error {
			select {
			case out <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := s.acquire(ctx); err != nil {
			return
		}
		defer s.release()

		var full strings.Builder
		_, err := s.Agent(m.cfg.Phase()).Run(ctx, s.ThreadID, message, func(ev Event) error {
			if ev.Tool != "" {
				full.WriteString(ToolMarker(ev.Tool))
			} else {
				full.WriteString(ev.Delta)
			}
			return send(StreamEvent{Snapshot: full.String()})
		})
		if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		m.cfg.Logger.Error("chat stream failed", "student_id", studentID, "error", err)
		_ = send(StreamEvent{Snapshot: full.String(), Err: err})
	}()
	return out, nil
}
