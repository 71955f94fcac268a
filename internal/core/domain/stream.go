package domain

// StreamEventType discriminates streaming events on the query boundary.
type StreamEventType string

// Stream event types. A stream is zero or more token events followed by
// exactly one terminal event (completed, failed or cancelled).
const (
	EventToken     StreamEventType = "token"
	EventCompleted StreamEventType = "completed"
	EventFailed    StreamEventType = "failed"
	EventCancelled StreamEventType = "cancelled"
)

// StreamEvent is one unit delivered to a streaming sink.
type StreamEvent struct {
	// Type discriminates the event.
	Type StreamEventType `json:"type"`

	// Token carries incremental answer text for token events.
	Token string `json:"token,omitempty"`

	// TurnID identifies the finalized assistant turn on a completed event.
	TurnID string `json:"turn_id,omitempty"`

	// Citations lists the passage ids grounding the answer on a
	// completed event.
	Citations []string `json:"citations,omitempty"`

	// Reason explains a failed event.
	Reason string `json:"reason,omitempty"`
}

// Terminal returns true for events that end a stream.
func (e StreamEvent) Terminal() bool {
	switch e.Type {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	default:
		return false
	}
}
