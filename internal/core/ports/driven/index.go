package driven

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// PassageIndex answers similarity queries over passage embeddings.
//
// The index is constructed explicitly at startup and closed at
// shutdown; there are no hidden singletons. It must support concurrent
// readers and writers without a reader ever observing part of a
// document's passages.
type PassageIndex interface {
	// Add makes all passages of a document visible to queries as one
	// atomic unit. A reader concurrent with Add sees either none or all
	// of them.
	Add(ctx context.Context, documentID string, passages []domain.Passage) error

	// Search returns up to topK passages ranked by descending cosine
	// similarity to the query embedding. Ties are broken by lower
	// passage id so results are reproducible. Passages scoring below
	// minScore are dropped; an empty result is not an error.
	//
	// Fails with domain.ErrRetrievalUnavailable when the index holds no
	// passages at all.
	Search(ctx context.Context, query []float32, topK int, minScore float64) ([]domain.ScoredPassage, error)

	// Remove atomically deletes all passages of a document.
	Remove(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
