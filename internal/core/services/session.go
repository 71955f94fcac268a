package services

import (
	"context"
	"fmt"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/core/ports/driving"
	"github.com/docuchat/docuchat/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// SessionManager manages conversation lifecycle on top of the session
// store.
type SessionManager struct {
	sessions driven.SessionStore
}

// NewSessionManager creates a session manager.
func NewSessionManager(sessions driven.SessionStore) *SessionManager {
	return &SessionManager{sessions: sessions}
}

// Create starts a new empty session.
func (m *SessionManager) Create(ctx context.Context) (*domain.Session, error) {
	session, err := m.sessions.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Debug("created session %s", session.ID)
	return session, nil
}

// History returns all turns of a session in chronological order.
func (m *SessionManager) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	turns, err := m.sessions.GetHistory(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return turns, nil
}

// Delete removes a session and all its turns.
func (m *SessionManager) Delete(ctx context.Context, sessionID string) error {
	if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logger.Debug("deleted session %s", sessionID)
	return nil
}
