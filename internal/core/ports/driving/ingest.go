package driving

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// IngestService runs the document ingestion pipeline.
type IngestService interface {
	// Ingest extracts, chunks, embeds and indexes an uploaded document.
	// A failure anywhere in the pipeline leaves no trace: no stored
	// document, no indexed passages.
	Ingest(ctx context.Context, filename string, data []byte) (*domain.IngestResult, error)

	// Delete removes a document and all its passages from both the
	// store and the index.
	Delete(ctx context.Context, documentID string) error

	// List returns all ingested documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)
}
