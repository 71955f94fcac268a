package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// maxUploadBytes caps document uploads at 50 MiB.
const maxUploadBytes = 50 << 20

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// documentResponse is the JSON shape of a document.
type documentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// turnResponse is the JSON shape of a turn in a history listing.
type turnResponse struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Citations  []string  `json:"citations,omitempty"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleIngest accepts a document as a multipart "file" part or as the
// raw request body with a filename query parameter.
func (s *Server) handleIngest(c *gin.Context) {
	filename, data, err := readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.ingest.Ingest(c.Request.Context(), filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.ingest.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		out[i] = documentResponse{
			ID:        doc.ID,
			Filename:  doc.Filename,
			PageCount: doc.PageCount,
			CreatedAt: doc.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	session, err := s.sessions.Create(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	turns, err := s.sessions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]turnResponse, len(turns))
	for i, turn := range turns {
		out[i] = turnResponse{
			ID:         turn.ID,
			Role:       string(turn.Role),
			Content:    turn.Content,
			Citations:  turn.Citations,
			Status:     string(turn.Status),
			FailReason: turn.FailReason,
			CreatedAt:  turn.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"turns": out})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readUpload extracts the document bytes and filename from the request.
func readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", nil, err
		}
		return file.Filename, data, nil
	}

	filename := c.Query("filename")
	if filename == "" {
		return "", nil, fmt.Errorf("filename query parameter is required: %w", domain.ErrInvalidInput)
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", nil, err
	}
	return filename, data, nil
}

// writeError maps a domain error onto an HTTP status and a stable error
// code.
func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, errorResponse{Error: code})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest, "invalid_format"
	case errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest, "empty_content"
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusBadRequest, "extraction_failed"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrTurnState):
		return http.StatusConflict, "turn_in_progress"
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone, "session_expired"
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable, "retrieval_unavailable"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "embedding_unavailable"
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, "generator_unavailable"
	case errors.Is(err, domain.ErrGenerationTimeout):
		return http.StatusGatewayTimeout, "generation_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
