package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/logger"
)

// chatRequest is the body of POST /chat/stream.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// handleChatStream answers one question as an NDJSON event stream: zero
// or more token events, then exactly one terminal event. The stream is
// bound to the request context, so a client hanging up cancels the
// generation.
func (s *Server) handleChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
		return
	}

	// Errors before the first event still fit a regular JSON response.
	// Once streaming starts, failures travel as terminal events instead.
	sink := &ndjsonSink{c: c}
	err := s.chat.Ask(c.Request.Context(), req.SessionID, req.Prompt, sink)
	if err != nil && !sink.started {
		writeError(c, err)
		return
	}
	if err != nil {
		logger.Debug("chat stream ended: %v", err)
	}
}

// ndjsonSink writes one JSON object per line, flushing after each so
// tokens reach the client immediately.
type ndjsonSink struct {
	c       *gin.Context
	started bool
}

func (s *ndjsonSink) Send(event domain.StreamEvent) error {
	if err := s.c.Request.Context().Err(); err != nil {
		return err
	}

	if !s.started {
		s.started = true
		s.c.Header("Content-Type", "application/x-ndjson")
		s.c.Header("Cache-Control", "no-cache")
		s.c.Header("X-Accel-Buffering", "no")
		s.c.Status(http.StatusOK)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.c.Writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.c.Writer.Flush()
	return nil
}
