package domain

import (
	"fmt"
	"time"
)

// AIProvider identifies a backend for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderLocal is the built-in deterministic embedder. It has no
	// generation capability and exists for offline indexing and tests.
	AIProviderLocal AIProvider = "local"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama, AIProviderLocal:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Default settings values.
const (
	DefaultMaxChunkChars     = 1000
	DefaultOverlapChars      = 200
	DefaultTopK              = 5
	DefaultMinScore          = 0.1
	DefaultMaxHistoryTurns   = 10
	DefaultGenerationTimeout = 120 * time.Second
	DefaultSessionTTL        = 24 * time.Hour
)

// ChunkConfig configures how page text is split into passages.
type ChunkConfig struct {
	// MaxChunkChars is the maximum passage length in characters.
	MaxChunkChars int

	// OverlapChars is how many characters consecutive passages share.
	OverlapChars int
}

// Validate checks the chunk configuration.
// Chunking never fails on content, so configuration is the only way the
// chunker can fail and it is checked once at startup.
func (c ChunkConfig) Validate() error {
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: max_chunk_chars must be positive, got %d",
			ErrInvalidChunkConfig, c.MaxChunkChars)
	}
	if c.OverlapChars <= 0 {
		return fmt.Errorf("%w: overlap_chars must be positive, got %d",
			ErrInvalidChunkConfig, c.OverlapChars)
	}
	if c.OverlapChars >= c.MaxChunkChars {
		return fmt.Errorf("%w: overlap_chars (%d) must be smaller than max_chunk_chars (%d)",
			ErrInvalidChunkConfig, c.OverlapChars, c.MaxChunkChars)
	}
	return nil
}

// Settings is the recognised configuration surface.
type Settings struct {
	// Chunking configures the passage splitter.
	Chunking ChunkConfig

	// TopK is the number of passages retrieved per query.
	TopK int

	// MinScore is the minimum similarity for a passage to be used.
	// Retrieval below this threshold yields an empty result, not an error.
	MinScore float64

	// MaxHistoryTurns bounds the conversation window included in prompts.
	MaxHistoryTurns int

	// GenerationTimeout bounds a single answer generation.
	GenerationTimeout time.Duration

	// SessionTTL is how long an idle session lives before expiry.
	// Zero disables expiry.
	SessionTTL time.Duration

	// Provider selects the embedding/generation backend.
	Provider AIProvider
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkConfig{
			MaxChunkChars: DefaultMaxChunkChars,
			OverlapChars:  DefaultOverlapChars,
		},
		TopK:              DefaultTopK,
		MinScore:          DefaultMinScore,
		MaxHistoryTurns:   DefaultMaxHistoryTurns,
		GenerationTimeout: DefaultGenerationTimeout,
		SessionTTL:        DefaultSessionTTL,
		Provider:          AIProviderLocal,
	}
}

// Validate checks the settings. It is called once at startup and any
// failure is fatal.
func (s Settings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, s.TopK)
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return fmt.Errorf("%w: min_score must be in [0,1], got %g", ErrInvalidInput, s.MinScore)
	}
	if s.MaxHistoryTurns < 0 {
		return fmt.Errorf("%w: max_history_turns must not be negative, got %d",
			ErrInvalidInput, s.MaxHistoryTurns)
	}
	if s.GenerationTimeout <= 0 {
		return fmt.Errorf("%w: generation_timeout must be positive, got %s",
			ErrInvalidInput, s.GenerationTimeout)
	}
	if !s.Provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, s.Provider)
	}
	return nil
}
