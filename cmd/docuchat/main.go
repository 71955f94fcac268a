// docuchat is a retrieval-augmented chat backend for PDF documents:
// ingest documents, then ask questions over HTTP or the terminal and
// get streamed, citation-grounded answers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/docuchat/docuchat/internal/adapters/driven/ai"
	configfile "github.com/docuchat/docuchat/internal/adapters/driven/config/file"
	indexmem "github.com/docuchat/docuchat/internal/adapters/driven/index/memory"
	storemem "github.com/docuchat/docuchat/internal/adapters/driven/storage/memory"
	"github.com/docuchat/docuchat/internal/adapters/driven/storage/sqlite"
	"github.com/docuchat/docuchat/internal/adapters/driving/cli"
	"github.com/docuchat/docuchat/internal/adapters/driving/httpapi"
	"github.com/docuchat/docuchat/internal/chunker"
	"github.com/docuchat/docuchat/internal/core/services"
	pdfextract "github.com/docuchat/docuchat/internal/extractor/pdf"
	"github.com/docuchat/docuchat/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env next to the binary is the usual place for OPENAI_API_KEY.
	_ = godotenv.Load()

	cfg, err := configfile.Load(configPath())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	aiServices, err := ai.CreateServices(cfg.AI)
	if err != nil {
		return fmt.Errorf("create ai services: %w", err)
	}
	defer aiServices.Close()

	splitter, err := chunker.New(cfg.Settings.Chunking)
	if err != nil {
		return err
	}

	index := indexmem.New()
	defer index.Close()
	sessions := storemem.NewSessionStore(cfg.Settings.SessionTTL)

	pipeline := services.NewIngestPipeline(
		pdfextract.New(), splitter, aiServices.Embedder, store.DocumentStore(), index)
	orchestrator := services.NewChatOrchestrator(
		sessions, index, aiServices.Embedder, aiServices.Generator, cfg.Settings)
	sessionManager := services.NewSessionManager(sessions)

	// The index is in-memory; rebuild it from the store on startup.
	if err := pipeline.Reindex(context.Background()); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	server := httpapi.New(pipeline, orchestrator, sessionManager)
	serve := func(addr string) error {
		if addr == "" {
			addr = cfg.Server.Addr()
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx, addr)
	}

	cli.SetServices(pipeline, orchestrator, sessionManager, serve)
	return cli.Execute()
}

// configPath resolves the configuration file location: the --config
// flag, then DOCUCHAT_CONFIG, then the default under the user's home
// directory.
func configPath() string {
	if path := cli.ConfigPath(os.Args[1:]); path != "" {
		return path
	}
	if path := os.Getenv("DOCUCHAT_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("cannot resolve home directory: %v", err)
		return ""
	}
	return filepath.Join(home, ".docuchat", "config.toml")
}
