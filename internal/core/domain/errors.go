package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidFormat indicates the uploaded bytes are not a PDF.
	ErrInvalidFormat = errors.New("invalid document format")

	// ErrEmptyContent indicates an upload with no content.
	ErrEmptyContent = errors.New("empty content")

	// ErrExtraction indicates text extraction failed for a document.
	// Extraction is all-or-nothing: no passages of a failed document
	// are ever indexed.
	ErrExtraction = errors.New("extraction failed")

	// ErrInvalidChunkConfig indicates an invalid chunking configuration.
	// This is a startup-time failure, never a per-document one.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrRetrievalUnavailable indicates the passage index is empty or
	// unreachable. Queries are failed loudly rather than answered
	// without context.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrTurnState indicates a turn operation on a turn that is not in
	// the required state, such as appending text to a finalized turn or
	// creating a second pending assistant turn in one session.
	ErrTurnState = errors.New("invalid turn state")

	// ErrSessionExpired indicates the session was deleted or expired
	// while a turn was in flight.
	ErrSessionExpired = errors.New("session expired")

	// ErrGenerationTimeout indicates the generation capability did not
	// finish within the configured deadline.
	ErrGenerationTimeout = errors.New("generation timeout")

	// ErrGeneratorUnavailable indicates no generation backend is
	// configured or reachable.
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrEmbeddingUnavailable indicates no embedding backend is
	// configured or reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
