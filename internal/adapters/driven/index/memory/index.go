// Package memory provides an in-memory passage index with cosine
// similarity search.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/logger"
)

// Similarity scores a query vector against a passage embedding.
// Higher is more similar.
type Similarity func(query, embedding []float32) float64

// Index holds passage embeddings keyed by document. A document's
// passages become visible to Search atomically: readers either see all
// of them or none.
type Index struct {
	mu    sync.RWMutex
	docs  map[string][]domain.Passage
	size  int
	score Similarity
}

var _ driven.PassageIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithSimilarity replaces the scoring function. The metric is fixed at
// construction; all queries against one index use the same metric.
func WithSimilarity(fn Similarity) Option {
	return func(idx *Index) {
		idx.score = fn
	}
}

// New creates an empty index. The default metric is cosine similarity.
func New(opts ...Option) *Index {
	idx := &Index{
		docs:  make(map[string][]domain.Passage),
		score: cosineSimilarity,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add publishes the passages of a document. Re-adding a document
// replaces its previous passages in one step.
func (idx *Index) Add(ctx context.Context, documentID string, passages []domain.Passage) error {
	if documentID == "" {
		return fmt.Errorf("add to index: empty document id: %w", domain.ErrInvalidInput)
	}
	for _, p := range passages {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("add to index: passage %s has no embedding: %w", p.ID, domain.ErrInvalidInput)
		}
	}

	cp := make([]domain.Passage, len(passages))
	copy(cp, passages)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.size += len(cp) - len(idx.docs[documentID])
	idx.docs[documentID] = cp

	logger.Debug("index: published %d passages for document %s", len(cp), documentID)
	return nil
}

// Remove drops all passages of a document. Removing an unknown
// document is a no-op.
func (idx *Index) Remove(ctx context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.size -= len(idx.docs[documentID])
	delete(idx.docs, documentID)
	return nil
}

// Search returns up to topK passages ranked by similarity to query,
// strongest first. Passages scoring below minScore are dropped;
// a search that filters everything out returns an empty slice. Ties
// are broken by passage id so results are deterministic.
func (idx *Index) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]domain.ScoredPassage, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("search index: empty query vector: %w", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("search index: top k must be positive: %w", domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.size == 0 {
		return nil, fmt.Errorf("search index: %w", domain.ErrRetrievalUnavailable)
	}

	var scored []domain.ScoredPassage
	for _, passages := range idx.docs {
		for _, p := range passages {
			score := idx.score(query, p.Embedding)
			if score < minScore {
				continue
			}
			scored = append(scored, domain.ScoredPassage{Passage: p, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Size returns the number of indexed passages.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.size
}

// Close releases the index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = make(map[string][]domain.Passage)
	idx.size = 0
	return nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
