package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/logging"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Manager owns the live sessions.
type Manager struct {
	deps    Deps
	idleTTL time.Duration
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a Manager creating sessions from deps. idleTTL <= 0
// disables eviction.
func NewManager(deps Deps, idleTTL time.Duration) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	return &Manager{
		deps:     deps,
		idleTTL:  idleTTL,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := New(m.deps)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	ActiveSessions.Set(float64(n))
	m.logger.Info(logging.WithSessionID(ctx, s.ID()), "session created")
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete ends the session with id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ActiveSessions.Set(float64(n))
	m.logger.Info(logging.WithSessionID(ctx, id), "session deleted")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes sessions idle since before now minus the idle TTL and
// returns how many were removed.
func (m *Manager) Evict(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(evicted) > 0 {
		ActiveSessions.Set(float64(n))
		m.logger.Info(context.Background(), "idle sessions evicted",
			zap.Int("count", len(evicted)),
			zap.Strings("session_ids", evicted),
		)
	}
	return len(evicted)
}

// Run evicts idle sessions periodically until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTTL <= 0 {
		return
	}
	interval := m.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Evict(now)
		}
	}
}
