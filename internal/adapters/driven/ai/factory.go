// Package ai provides factory functions for creating embedding and
// generation adapters from configuration.
package ai

import (
	"fmt"

	localembed "github.com/docuchat/docuchat/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/docuchat/docuchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/docuchat/docuchat/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/docuchat/docuchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/docuchat/docuchat/internal/adapters/driven/llm/openai"
	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/logger"
)

// OpenAIConfig holds the OpenAI provider settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
}

// OllamaConfig holds the Ollama provider settings.
type OllamaConfig struct {
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
}

// LocalConfig holds the built-in embedder settings.
type LocalConfig struct {
	Dimensions int
}

// Config selects a provider and carries its settings.
type Config struct {
	Provider domain.AIProvider
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
	Local    LocalConfig
}

// Services bundles the created adapters.
type Services struct {
	// Embedder is always present.
	Embedder driven.EmbeddingService

	// Generator is nil for the local provider, which can index and
	// retrieve but cannot generate answers.
	Generator driven.Generator
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedder != nil {
		s.Embedder.Close()
	}
	if s.Generator != nil {
		s.Generator.Close()
	}
}

// CreateServices builds the embedding service and generator for the
// configured provider.
func CreateServices(cfg Config) (*Services, error) {
	switch cfg.Provider {
	case domain.AIProviderOpenAI:
		embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		generator, err := openaillm.NewGenerator(openaillm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
		})
		if err != nil {
			embedder.Close()
			return nil, fmt.Errorf("creating openai generator: %w", err)
		}
		logger.Info("ai provider: openai (embed=%s, chat=%s)", embedder.ModelName(), generator.ModelName())
		return &Services{Embedder: embedder, Generator: generator}, nil

	case domain.AIProviderOllama:
		embedder := ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.EmbeddingModel,
		})
		generator := ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.ChatModel,
		})
		logger.Info("ai provider: ollama (embed=%s, chat=%s)", embedder.ModelName(), generator.ModelName())
		return &Services{Embedder: embedder, Generator: generator}, nil

	case domain.AIProviderLocal:
		embedder := localembed.NewEmbeddingService(cfg.Local.Dimensions)
		logger.Warn("ai provider: local embedder only, chat is unavailable")
		return &Services{Embedder: embedder}, nil

	default:
		return nil, fmt.Errorf("unknown ai provider %q: %w", cfg.Provider, domain.ErrInvalidInput)
	}
}
