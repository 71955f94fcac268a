package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/core/domain"
)

func passage(id, docID string, embedding []float32) domain.Passage {
	return domain.Passage{ID: id, DocumentID: docID, Page: 1, Embedding: embedding}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := New()

	_, err := idx.Search(context.Background(), []float32{1, 0}, 5, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRetrievalUnavailable))
}

func TestSearch_RanksByCosine(t *testing.T) {
	idx := New()
	err := idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-far", "doc-1", []float32{0, 1}),
		passage("p-near", "doc-1", []float32{1, 0.1}),
		passage("p-mid", "doc-1", []float32{1, 1}),
	})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, 0)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "p-near", results[0].ID)
	assert.Equal(t, "p-mid", results[1].ID)
	assert.Equal(t, "p-far", results[2].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_TopKLimit(t *testing.T) {
	idx := New()
	var passages []domain.Passage
	for i := 0; i < 10; i++ {
		passages = append(passages, passage(fmt.Sprintf("p-%02d", i), "doc-1", []float32{1, float32(i)}))
	}
	require.NoError(t, idx.Add(context.Background(), "doc-1", passages))

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, 0)

	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_MinScoreFiltersToEmpty(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-1", "doc-1", []float32{0, 1}),
	}))

	// Orthogonal to the query: score 0, below the threshold. Not an
	// error, just no results.
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5, 0.5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_TieBreakByPassageID(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-b", "doc-1", []float32{1, 0}),
		passage("p-a", "doc-1", []float32{2, 0}),
	}))

	// Identical direction means identical cosine score; the lower id
	// must come first.
	results, err := idx.Search(context.Background(), []float32{1, 0}, 2, 0)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p-a", results[0].ID)
	assert.Equal(t, "p-b", results[1].ID)
}

func TestSearch_InvalidArguments(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-1", "doc-1", []float32{1, 0}),
	}))

	_, err := idx.Search(context.Background(), nil, 5, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = idx.Search(context.Background(), []float32{1, 0}, 0, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAdd_RequiresEmbeddings(t *testing.T) {
	idx := New()

	err := idx.Add(context.Background(), "doc-1", []domain.Passage{
		{ID: "p-1", DocumentID: "doc-1"},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRemove_DropsDocument(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-1", "doc-1", []float32{1, 0}),
	}))
	require.NoError(t, idx.Add(context.Background(), "doc-2", []domain.Passage{
		passage("p-2", "doc-2", []float32{1, 0}),
	}))

	require.NoError(t, idx.Remove(context.Background(), "doc-1"))

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p-2", results[0].ID)

	// Removing everything makes the index empty again.
	require.NoError(t, idx.Remove(context.Background(), "doc-2"))
	_, err = idx.Search(context.Background(), []float32{1, 0}, 5, 0)
	assert.True(t, errors.Is(err, domain.ErrRetrievalUnavailable))
}

func TestRemove_UnknownDocumentIsNoOp(t *testing.T) {
	idx := New()
	assert.NoError(t, idx.Remove(context.Background(), "ghost"))
	assert.Equal(t, 0, idx.Size())
}

func TestAdd_ReplacesDocumentAtomically(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-old-1", "doc-1", []float32{1, 0}),
		passage("p-old-2", "doc-1", []float32{1, 0}),
	}))

	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-new", "doc-1", []float32{1, 0}),
	}))

	results, err := idx.Search(context.Background(), []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p-new", results[0].ID)
	assert.Equal(t, 1, idx.Size())
}

func TestConcurrentAddAndSearch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(context.Background(), "doc-seed", []domain.Passage{
		passage("p-seed", "doc-seed", []float32{1, 0}),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			docID := fmt.Sprintf("doc-%d", n)
			for j := 0; j < 50; j++ {
				_ = idx.Add(context.Background(), docID, []domain.Passage{
					passage(fmt.Sprintf("p-%d-%d", n, j), docID, []float32{1, float32(j)}),
				})
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				results, err := idx.Search(context.Background(), []float32{1, 0}, 5, 0)
				if err == nil {
					// Atomic publication: a document never contributes
					// a partially visible passage set.
					assert.NotEmpty(t, results)
				}
			}
		}()
	}
	wg.Wait()
}

func TestWithSimilarity_OverridesMetric(t *testing.T) {
	// Dot product ranks by magnitude, unlike cosine.
	idx := New(WithSimilarity(func(query, embedding []float32) float64 {
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(embedding[i])
		}
		return dot
	}))

	require.NoError(t, idx.Add(context.Background(), "doc-1", []domain.Passage{
		passage("p-short", "doc-1", []float32{1, 0}),
		passage("p-long", "doc-1", []float32{3, 0}),
	}))

	results, err := idx.Search(context.Background(), []float32{1, 0}, 1, 0)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p-long", results[0].ID)
	assert.InDelta(t, 3.0, results[0].Score, 1e-9)
}
