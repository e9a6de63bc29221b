package game

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

// Session pairs a match with the coordinator that owns its mutations.
type Session struct {
	Match       *Match
	Coordinator *Coordinator

	// handles of the listeners subscribed by CreateMatch
	handles []int
}

// Manager manages concurrent matches. Each match carries its own action
// lock, so matches never serialize behind one another.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewManager creates a new match manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// CreateMatch seats the roster in a new match and starts its coordinator.
// Listeners are subscribed before the start, so they observe every event
// including the first planner turns.
func (m *Manager) CreateMatch(ctx context.Context, roster map[rules.Role]*character.Combatant, opts MatchOptions, cfg CoordinatorConfig, listeners ...rules.Listener) (*Session, error) {
	id := uuid.NewString()
	match, err := NewMatch(id, roster, opts)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	session := &Session{
		Match:       match,
		Coordinator: NewCoordinator(match, cfg, m.logger),
	}
	for _, l := range listeners {
		if h := match.Events().Subscribe(l); h >= 0 {
			session.handles = append(session.handles, h)
		}
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	names := make([]string, 0, len(roster))
	for _, role := range rules.RotationOrder {
		if c, ok := roster[role]; ok {
			names = append(names, string(role)+"="+c.Name)
		}
	}
	m.logger.Info("match created",
		zap.String("match_id", id),
		zap.Strings("roster", names),
	)

	session.Coordinator.Start(ctx)
	return session, nil
}

// GetMatch retrieves a session by match id.
func (m *Manager) GetMatch(matchID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[matchID]
	return session, ok
}

// EndMatch removes a match and detaches the listeners given to CreateMatch,
// so a late acknowledgement no longer reaches a departed client.
func (m *Manager) EndMatch(matchID string) {
	m.mu.Lock()
	session, ok := m.sessions[matchID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, matchID)
	m.mu.Unlock()

	for _, h := range session.handles {
		session.Match.Events().Unsubscribe(h)
	}

	m.logger.Info("match removed", zap.String("match_id", matchID))
}

// ListMatches returns snapshots of all matches, oldest first.
func (m *Manager) ListMatches() []MatchView {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	views := make([]MatchView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.Match.Snapshot())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

// GetActiveMatchCount returns the number of matches without a victor.
func (m *Manager) GetActiveMatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.sessions {
		if !s.Match.IsOver() {
			count++
		}
	}
	return count
}
