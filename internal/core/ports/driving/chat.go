package driving

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

// ChatService answers one user turn with a streamed, retrieval-grounded
// response.
type ChatService interface {
	// Ask runs one query turn: it retrieves context for userText,
	// generates an answer and delivers it token by token to sink,
	// recording both turns in the session. The call returns after the
	// terminal event has been delivered (or delivery failed).
	//
	// Cancelling ctx cancels the in-flight generation; the pending
	// assistant turn is finalized failed with reason "cancelled".
	Ask(ctx context.Context, sessionID, userText string, sink driven.TokenSink) error
}
