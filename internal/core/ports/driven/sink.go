package driven

import "github.com/docuchat/docuchat/internal/core/domain"

// TokenSink consumes ordered stream events for one query. It is the
// abstraction over whatever carries the answer to the user (HTTP
// response, terminal, test recorder).
//
// Send is called from a single goroutine in generation order and may
// block; the orchestrator's bounded buffer converts a slow sink into
// backpressure on the generator instead of unbounded memory growth.
// After a terminal event no further Send calls are made.
type TokenSink interface {
	Send(event domain.StreamEvent) error
}

// SinkFunc adapts a function to the TokenSink interface.
type SinkFunc func(event domain.StreamEvent) error

// Send calls the wrapped function.
func (f SinkFunc) Send(event domain.StreamEvent) error {
	return f(event)
}
