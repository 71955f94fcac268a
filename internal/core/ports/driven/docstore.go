package driven

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// DocumentStore persists documents, their pages and their passages.
// Backed by SQLite.
type DocumentStore interface {
	// SaveDocument stores a document with its pages and passages in one
	// transaction. Documents are immutable: saving an existing id is an
	// error.
	SaveDocument(ctx context.Context, doc *domain.Document, pages []domain.Page, passages []domain.Passage) error

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetPassages retrieves all passages of a document in page/offset order.
	GetPassages(ctx context.Context, documentID string) ([]domain.Passage, error)

	// GetPassage retrieves a specific passage by id.
	GetPassage(ctx context.Context, id string) (*domain.Passage, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document with its pages and passages.
	DeleteDocument(ctx context.Context, id string) error
}
