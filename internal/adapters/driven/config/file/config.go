// Package file loads application configuration from a TOML file with
// environment overrides.
package file

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/docuchat/docuchat/internal/adapters/driven/ai"
	"github.com/docuchat/docuchat/internal/core/domain"
)

// Default server address, matching the usual local development setup.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8000
)

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AppConfig is the full application configuration.
type AppConfig struct {
	Settings domain.Settings
	AI       ai.Config
	Server   ServerConfig

	// DataDir is where the SQLite database lives. Empty selects the
	// default under the user's home directory.
	DataDir string
}

// fileConfig mirrors the TOML schema. Durations are plain integers
// (seconds or hours) so the file stays hand-editable.
type fileConfig struct {
	Provider string `toml:"provider"`
	DataDir  string `toml:"data_dir"`

	Chunking struct {
		MaxChunkChars int `toml:"max_chunk_chars"`
		OverlapChars  int `toml:"overlap_chars"`
	} `toml:"chunking"`

	Retrieval struct {
		TopK     int     `toml:"top_k"`
		MinScore float64 `toml:"min_score"`
	} `toml:"retrieval"`

	Chat struct {
		MaxHistoryTurns          int `toml:"max_history_turns"`
		GenerationTimeoutSeconds int `toml:"generation_timeout_seconds"`
	} `toml:"chat"`

	Session struct {
		TTLHours int `toml:"ttl_hours"`
	} `toml:"session"`

	Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"server"`

	OpenAI struct {
		APIKey         string `toml:"api_key"`
		BaseURL        string `toml:"base_url"`
		EmbeddingModel string `toml:"embedding_model"`
		ChatModel      string `toml:"chat_model"`
	} `toml:"openai"`

	Ollama struct {
		BaseURL        string `toml:"base_url"`
		EmbeddingModel string `toml:"embedding_model"`
		ChatModel      string `toml:"chat_model"`
	} `toml:"ollama"`

	Local struct {
		Dimensions int `toml:"dimensions"`
	} `toml:"local"`
}

// Load reads the configuration file at path and returns the resolved
// application configuration. A missing file is not an error: defaults
// and environment overrides still apply. The returned settings are
// validated; an invalid file is rejected here so startup can fail fast.
func Load(path string) (*AppConfig, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg := &AppConfig{
		Settings: domain.DefaultSettings(),
		Server:   ServerConfig{Host: DefaultHost, Port: DefaultPort},
		DataDir:  fc.DataDir,
	}

	if fc.Chunking.MaxChunkChars > 0 {
		cfg.Settings.Chunking.MaxChunkChars = fc.Chunking.MaxChunkChars
	}
	if fc.Chunking.OverlapChars > 0 {
		cfg.Settings.Chunking.OverlapChars = fc.Chunking.OverlapChars
	}
	if fc.Retrieval.TopK > 0 {
		cfg.Settings.TopK = fc.Retrieval.TopK
	}
	if fc.Retrieval.MinScore > 0 {
		cfg.Settings.MinScore = fc.Retrieval.MinScore
	}
	if fc.Chat.MaxHistoryTurns > 0 {
		cfg.Settings.MaxHistoryTurns = fc.Chat.MaxHistoryTurns
	}
	if fc.Chat.GenerationTimeoutSeconds > 0 {
		cfg.Settings.GenerationTimeout = time.Duration(fc.Chat.GenerationTimeoutSeconds) * time.Second
	}
	if fc.Session.TTLHours > 0 {
		cfg.Settings.SessionTTL = time.Duration(fc.Session.TTLHours) * time.Hour
	}
	if fc.Provider != "" {
		cfg.Settings.Provider = domain.AIProvider(fc.Provider)
	}
	if fc.Server.Host != "" {
		cfg.Server.Host = fc.Server.Host
	}
	if fc.Server.Port > 0 {
		cfg.Server.Port = fc.Server.Port
	}

	cfg.AI = ai.Config{
		Provider: cfg.Settings.Provider,
		OpenAI: ai.OpenAIConfig{
			APIKey:         fc.OpenAI.APIKey,
			BaseURL:        fc.OpenAI.BaseURL,
			EmbeddingModel: fc.OpenAI.EmbeddingModel,
			ChatModel:      fc.OpenAI.ChatModel,
		},
		Ollama: ai.OllamaConfig{
			BaseURL:        fc.Ollama.BaseURL,
			EmbeddingModel: fc.Ollama.EmbeddingModel,
			ChatModel:      fc.Ollama.ChatModel,
		},
		Local: ai.LocalConfig{
			Dimensions: fc.Local.Dimensions,
		},
	}

	applyEnv(cfg)

	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on the loaded configuration.
// The API key usually comes from the environment (or a .env file loaded
// by main) rather than the config file.
func applyEnv(cfg *AppConfig) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = key
	}
	if host := os.Getenv("APP_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("APP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
}
