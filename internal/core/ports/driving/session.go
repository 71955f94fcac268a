package driving

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// SessionService manages conversation lifecycle.
type SessionService interface {
	// Create starts a new empty session.
	Create(ctx context.Context) (*domain.Session, error)

	// History returns all turns of a session in chronological order.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Delete removes a session and all its turns.
	Delete(ctx context.Context, sessionID string) error
}
