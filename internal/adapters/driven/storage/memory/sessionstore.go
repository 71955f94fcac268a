// Package memory provides in-memory implementations of driven storage
// ports, used for tests and for running without a database file.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// sessionEntry tracks a session, its turns and its last activity.
type sessionEntry struct {
	session    domain.Session
	turns      []domain.Turn
	lastActive time.Time
}

// SessionStore is an in-memory implementation of driven.SessionStore
// with TTL-based expiry. A session whose last activity is older than
// the TTL is dropped lazily on next access, turns included.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	turnIdx  map[string]string // turn id -> session id
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithClock overrides the time source. Used in tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore creates an in-memory session store. A ttl <= 0
// disables expiry.
func NewSessionStore(ttl time.Duration, opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*sessionEntry),
		turnIdx:  make(map[string]string),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates an empty session.
func (s *SessionStore) CreateSession(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	session := domain.Session{ID: uuid.New().String(), CreatedAt: now}
	s.sessions[session.ID] = &sessionEntry{session: session, lastActive: now}
	return &session, nil
}

// GetSession retrieves a session by ID.
func (s *SessionStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(id)
	if err != nil {
		return nil, err
	}
	session := entry.session
	return &session, nil
}

// DeleteSession removes a session and all its turns.
func (s *SessionStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.live(id); err != nil {
		return err
	}
	s.drop(id)
	return nil
}

// AppendTurn appends a turn and returns its id. At most one assistant
// turn per session may be pending.
func (s *SessionStore) AppendTurn(_ context.Context, sessionID string, turn domain.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(sessionID)
	if err != nil {
		return "", err
	}

	if turn.Status == domain.TurnPending {
		for _, existing := range entry.turns {
			if existing.Status == domain.TurnPending {
				return "", fmt.Errorf("session %s already has a pending turn: %w", sessionID, domain.ErrTurnState)
			}
		}
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	turn.SessionID = sessionID
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now().UTC()
	}

	entry.turns = append(entry.turns, turn)
	entry.lastActive = s.now().UTC()
	s.turnIdx[turn.ID] = sessionID
	return turn.ID, nil
}

// AppendExchange appends a completed user turn and a pending assistant
// turn in one step under the lock. The loser of a race for the pending
// slot records nothing.
func (s *SessionStore) AppendExchange(_ context.Context, sessionID string, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(sessionID)
	if err != nil {
		return "", err
	}
	for _, existing := range entry.turns {
		if existing.Status == domain.TurnPending {
			return "", fmt.Errorf("session %s already has a pending turn: %w", sessionID, domain.ErrTurnState)
		}
	}

	now := s.now().UTC()
	user := domain.Turn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   userText,
		Status:    domain.TurnComplete,
		CreatedAt: now,
	}
	assistant := domain.Turn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Status:    domain.TurnPending,
		CreatedAt: now,
	}

	entry.turns = append(entry.turns, user, assistant)
	entry.lastActive = now
	s.turnIdx[user.ID] = sessionID
	s.turnIdx[assistant.ID] = sessionID
	return assistant.ID, nil
}

// GetHistory returns the most recent maxTurns turns in chronological
// order. maxTurns <= 0 returns the full history.
func (s *SessionStore) GetHistory(_ context.Context, sessionID string, maxTurns int) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.live(sessionID)
	if err != nil {
		return nil, err
	}

	turns := entry.turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// AppendToTurn appends incremental text to a pending turn.
func (s *SessionStore) AppendToTurn(_ context.Context, turnID string, delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, entry, err := s.pendingTurn(turnID)
	if err != nil {
		return err
	}
	turn.Content += delta
	entry.lastActive = s.now().UTC()
	return nil
}

// FinalizeTurn freezes a pending turn to complete or failed.
func (s *SessionStore) FinalizeTurn(
	_ context.Context,
	turnID string,
	status domain.TurnStatus,
	reason string,
	citations []string,
) error {
	if status != domain.TurnComplete && status != domain.TurnFailed {
		return fmt.Errorf("finalize to %q: %w", status, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turn, entry, err := s.pendingTurn(turnID)
	if err != nil {
		return err
	}
	turn.Status = status
	turn.FailReason = reason
	turn.Citations = append([]string(nil), citations...)
	entry.lastActive = s.now().UTC()
	return nil
}

// live returns the entry for id, dropping it first if the TTL has
// elapsed. Callers must hold the mutex.
func (s *SessionStore) live(id string) (*sessionEntry, error) {
	entry, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(entry.lastActive) > s.ttl {
		s.drop(id)
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// drop removes a session and its turn index entries. Callers must hold
// the mutex.
func (s *SessionStore) drop(id string) {
	entry := s.sessions[id]
	if entry != nil {
		for _, turn := range entry.turns {
			delete(s.turnIdx, turn.ID)
		}
	}
	delete(s.sessions, id)
}

// pendingTurn locates a pending turn by id. Callers must hold the mutex.
func (s *SessionStore) pendingTurn(turnID string) (*domain.Turn, *sessionEntry, error) {
	sessionID, ok := s.turnIdx[turnID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	entry, err := s.live(sessionID)
	if err != nil {
		return nil, nil, err
	}
	for i := range entry.turns {
		if entry.turns[i].ID == turnID {
			if entry.turns[i].Status != domain.TurnPending {
				return nil, nil, fmt.Errorf("turn %s is %s, not pending: %w",
					turnID, entry.turns[i].Status, domain.ErrTurnState)
			}
			return &entry.turns[i], entry, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}
