package domain

import "time"

// TurnRole identifies the author of a turn.
type TurnRole string

// Turn roles.
const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// TurnStatus is the lifecycle state of a turn.
type TurnStatus string

// Turn statuses. A pending assistant turn accumulates text as tokens
// arrive, then is frozen to complete or failed. User turns are created
// complete.
const (
	TurnPending  TurnStatus = "pending"
	TurnComplete TurnStatus = "complete"
	TurnFailed   TurnStatus = "failed"
)

// Failure reasons recorded on failed turns and terminal stream events.
const (
	ReasonRetrievalUnavailable = "retrieval_unavailable"
	ReasonGenerationFailed     = "generation_failed"
	ReasonTimeout              = "timeout"
	ReasonCancelled            = "cancelled"
	ReasonSessionExpired       = "session_expired"
)

// Session is one conversation. Its turn sequence is append-only for the
// life of the conversation; explicit deletion or TTL expiry ends it.
type Session struct {
	// ID is the unique session identifier.
	ID string

	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// Turn is one message within a session.
type Turn struct {
	// ID is the unique turn identifier.
	ID string

	// SessionID links to the owning Session.
	SessionID string

	// Role is who authored the turn.
	Role TurnRole

	// Content is the message text. For a pending assistant turn this
	// grows as tokens are appended.
	Content string

	// Citations lists the passage ids used to ground an assistant
	// answer. Empty for user turns.
	Citations []string

	// Status is the turn lifecycle state.
	Status TurnStatus

	// FailReason explains a failed turn (empty otherwise).
	FailReason string

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time
}
