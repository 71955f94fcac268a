// Package httpapi exposes ingestion, chat and session management over
// HTTP. Chat answers stream as NDJSON so clients render tokens as they
// arrive; closing the connection cancels the in-flight generation.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat/internal/core/ports/driving"
	"github.com/docuchat/docuchat/internal/logger"
)

// Server wires the driving services to HTTP routes.
type Server struct {
	ingest   driving.IngestService
	chat     driving.ChatService
	sessions driving.SessionService
}

// New creates the HTTP server adapter.
func New(ingest driving.IngestService, chat driving.ChatService, sessions driving.SessionService) *Server {
	return &Server{
		ingest:   ingest,
		chat:     chat,
		sessions: sessions,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	router.POST("/ingest", s.handleIngest)
	router.GET("/documents", s.handleListDocuments)
	router.DELETE("/documents/:id", s.handleDeleteDocument)

	router.POST("/sessions", s.handleCreateSession)
	router.GET("/sessions/:id/history", s.handleHistory)
	router.DELETE("/sessions/:id", s.handleDeleteSession)

	router.POST("/chat/stream", s.handleChatStream)

	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown: %v", err)
		}
	}()

	logger.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
