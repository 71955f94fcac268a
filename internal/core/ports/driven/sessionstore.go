package driven

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// SessionStore persists conversations and guards turn state.
//
// The store enforces the central concurrency invariant: at most one
// assistant turn per session may be pending at any time. AppendExchange
// is the gate: two orchestrations racing to answer the same session
// resolve there, with exactly one winner and nothing recorded for the
// loser.
type SessionStore interface {
	// CreateSession creates an empty session.
	CreateSession(ctx context.Context) (*domain.Session, error)

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// DeleteSession removes a session and all its turns. In-flight work
	// referencing the session will observe domain.ErrNotFound on its
	// next store call.
	DeleteSession(ctx context.Context, id string) error

	// AppendTurn appends a turn and returns its id. Appending a pending
	// assistant turn fails with domain.ErrTurnState when the session
	// already has one.
	AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) (string, error)

	// AppendExchange atomically appends a completed user turn and the
	// pending assistant turn that will answer it, returning the
	// assistant turn id. When the session already has a pending turn it
	// fails with domain.ErrTurnState and records neither turn.
	AppendExchange(ctx context.Context, sessionID string, userText string) (string, error)

	// GetHistory returns the most recent maxTurns turns in
	// chronological order (prompts need conversational order).
	// maxTurns <= 0 returns the full history.
	GetHistory(ctx context.Context, sessionID string, maxTurns int) ([]domain.Turn, error)

	// AppendToTurn appends incremental text to a pending assistant
	// turn. Fails with domain.ErrTurnState if the turn is not pending.
	AppendToTurn(ctx context.Context, turnID string, delta string) error

	// FinalizeTurn freezes a pending turn to complete or failed,
	// recording the failure reason and the citations. Fails with
	// domain.ErrTurnState if the turn is not pending.
	FinalizeTurn(ctx context.Context, turnID string, status domain.TurnStatus, reason string, citations []string) error
}
