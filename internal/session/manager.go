package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/google/uuid"
)

// Config wires a Manager. Zero durations and rates fall back to defaults.
type Config struct {
	Routines   RoutineReader
	History    HistoryReader
	Writer     storage.LogWriter
	Store      localstore.Store
	Navigators NavigatorFactory
	Metrics    *metrics.Manager
	Log        *slog.Logger
	Now        func() time.Time
	Location   *time.Location

	AutosaveDebounce  time.Duration
	RecoveryStaleness time.Duration
	CaloriesPerMinute float64
	HistoryScope      models.HistoryScope
}

// Manager holds the live sessions, at most one per user.
type Manager struct {
	d *deps

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	byUser   map[int]uuid.UUID
}

func NewManager(cfg Config) *Manager {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewUnregistered()
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Navigators == nil {
		cfg.Navigators = func(uuid.UUID) Navigator { return NopNavigator{} }
	}
	if cfg.AutosaveDebounce <= 0 {
		cfg.AutosaveDebounce = DefaultAutosaveDebounce
	}
	if cfg.RecoveryStaleness <= 0 {
		cfg.RecoveryStaleness = DefaultStaleness
	}
	if cfg.HistoryScope == "" {
		cfg.HistoryScope = models.ScopeRoutine
	}

	return &Manager{
		d: &deps{
			routines:  cfg.Routines,
			history:   cfg.History,
			committer: NewCommitter(cfg.Writer, cfg.Now, cfg.Location, cfg.CaloriesPerMinute, cfg.Metrics, cfg.Log),
			cfg:       cfg,
			metrics:   cfg.Metrics,
			log:       cfg.Log,
			now:       cfg.Now,
		},
		sessions: map[uuid.UUID]*Session{},
		byUser:   map[int]uuid.UUID{},
	}
}

// Open returns the user's live session for routineID, or starts a new one.
// A live session on another routine is saved to the recovery slot and
// closed first, so the new session offers to resume it.
func (m *Manager) Open(ctx context.Context, userID int, routineID int64) (*Session, error) {
	m.mu.Lock()
	if prev := m.userSessionLocked(userID); prev != nil {
		if prev.live() && prev.RoutineID() == routineID {
			m.mu.Unlock()
			prev.touch()
			return prev, nil
		}
		m.removeLocked(prev)
		m.mu.Unlock()
		prev.retire()
	} else {
		m.mu.Unlock()
	}

	s := newSession(m.d, userID, routineID)
	if err := s.open(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("opening session: %w", err)
	}

	m.mu.Lock()
	if prev := m.userSessionLocked(userID); prev != nil {
		m.removeLocked(prev)
		defer prev.retire()
	}
	m.sessions[s.id] = s
	m.byUser[userID] = s.id
	m.d.metrics.GaugeSessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return s, nil
}

// Get returns the session id if it belongs to userID.
func (m *Manager) Get(id uuid.UUID, userID int) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.userID != userID {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	s.touch()
	return s, nil
}

// Close removes a session, saving any unsaved work to the recovery slot.
func (m *Manager) Close(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		m.removeLocked(s)
	}
	m.mu.Unlock()
	if ok {
		s.retire()
	}
}

// Sweep closes sessions idle for longer than maxIdle and returns how many.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.d.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	for _, s := range idle {
		m.removeLocked(s)
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.retire()
	}
	if len(idle) > 0 {
		m.d.log.Info("idle sessions closed", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxIdle)
		}
	}
}

// Shutdown saves and closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = map[uuid.UUID]*Session{}
	m.byUser = map[int]uuid.UUID{}
	m.d.metrics.GaugeSessionsActive.Set(0)
	m.mu.Unlock()

	for _, s := range all {
		s.retire()
	}
}

// Len returns the number of sessions held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) userSessionLocked(userID int) *Session {
	id, ok := m.byUser[userID]
	if !ok {
		return nil
	}
	return m.sessions[id]
}

func (m *Manager) removeLocked(s *Session) {
	delete(m.sessions, s.id)
	if m.byUser[s.userID] == s.id {
		delete(m.byUser, s.userID)
	}
	m.d.metrics.GaugeSessionsActive.Set(float64(len(m.sessions)))
}
