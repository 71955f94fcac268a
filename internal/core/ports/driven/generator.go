package driven

import "context"

// ChatMessage is a single message in a generation prompt.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// GenerateOptions configures answer generation.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// Generator is the answer-generation capability: given a prompt, it
// produces an open-ended token stream. The stream is finite but of
// unbounded length, with tokens arriving asynchronously.
type Generator interface {
	// Stream starts a generation and returns the token source.
	// Cancelling ctx stops generation; the returned stream observes the
	// cancellation on its next Recv.
	Stream(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (TokenStream, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// TokenStream is a pull-based token source. Recv returns io.EOF after
// the final token; any other error aborts the generation.
type TokenStream interface {
	// Recv blocks until the next token is available.
	Recv() (string, error)

	// Close releases the underlying connection. Safe to call more than
	// once and concurrently with Recv.
	Close() error
}
