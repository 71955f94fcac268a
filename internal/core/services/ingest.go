package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/docuchat/docuchat/internal/chunker"
	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/core/ports/driving"
	"github.com/docuchat/docuchat/internal/logger"
)

// Ensure IngestPipeline implements the interface.
var _ driving.IngestService = (*IngestPipeline)(nil)

// embedBatchSize is how many passages go into one embedding request.
const embedBatchSize = 16

// embedConcurrency bounds the number of in-flight embedding requests.
const embedConcurrency = 4

// IngestPipeline runs extract -> chunk -> embed -> persist -> index for
// uploaded documents.
type IngestPipeline struct {
	extractor driven.DocumentExtractor
	splitter  *chunker.Chunker
	embedder  driven.EmbeddingService
	docStore  driven.DocumentStore
	index     driven.PassageIndex
}

// NewIngestPipeline creates the ingestion pipeline.
func NewIngestPipeline(
	extractor driven.DocumentExtractor,
	splitter *chunker.Chunker,
	embedder driven.EmbeddingService,
	docStore driven.DocumentStore,
	index driven.PassageIndex,
) *IngestPipeline {
	return &IngestPipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		docStore:  docStore,
		index:     index,
	}
}

// Ingest processes one uploaded document end to end. The pipeline is
// all-or-nothing: a failure at any stage leaves no stored document and
// no indexed passages.
func (p *IngestPipeline) Ingest(ctx context.Context, filename string, data []byte) (*domain.IngestResult, error) {
	logger.Section("Ingestion")

	// 1. Extract page text
	pages, err := p.extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// 2. Create the document identity and stamp the pages
	doc := &domain.Document{
		ID:        uuid.New().String(),
		Filename:  filename,
		PageCount: len(pages),
		CreatedAt: time.Now().UTC(),
	}
	for i := range pages {
		pages[i].DocumentID = doc.ID
	}

	// 3. Chunk into passages
	passages := p.splitter.Split(pages)
	logger.Debug("chunked %s into %d passages across %d pages", filename, len(passages), len(pages))

	// 4. Embed passages in bounded concurrent batches
	if err := p.embedPassages(ctx, passages); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	// 5. Persist document, pages and passages in one transaction
	if err := p.docStore.SaveDocument(ctx, doc, pages, passages); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	// 6. Publish to the index last, so a searchable passage is always a
	// stored passage. Roll the stored document back if publication fails.
	if err := p.index.Add(ctx, doc.ID, passages); err != nil {
		if delErr := p.docStore.DeleteDocument(ctx, doc.ID); delErr != nil {
			logger.Error("rollback of document %s failed: %v", doc.ID, delErr)
		}
		return nil, fmt.Errorf("index document: %w", err)
	}

	logger.Info("ingested %s: %d pages, %d passages", filename, doc.PageCount, len(passages))
	return &domain.IngestResult{
		DocumentID:   doc.ID,
		PageCount:    doc.PageCount,
		PassageCount: len(passages),
	}, nil
}

// embedPassages fills in the Embedding field of every passage, running
// batches concurrently. Each batch writes to its own slice segment, so
// no locking is needed.
func (p *IngestPipeline) embedPassages(ctx context.Context, passages []domain.Passage) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(passages); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, passage := range batch {
				texts[i] = passage.Text
			}

			embeddings, err := p.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
			}

			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}
			return nil
		})
	}

	return g.Wait()
}

// Delete removes a document from the index first, then from the store,
// so retrieval never returns a passage whose document is gone.
func (p *IngestPipeline) Delete(ctx context.Context, documentID string) error {
	if _, err := p.docStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if err := p.index.Remove(ctx, documentID); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	if err := p.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	logger.Info("deleted document %s", documentID)
	return nil
}

// List returns all ingested documents, newest first.
func (p *IngestPipeline) List(ctx context.Context) ([]domain.Document, error) {
	return p.docStore.ListDocuments(ctx)
}

// Reindex republishes all stored passages into the index. Called at
// startup because the index is in-process and empty after a restart.
func (p *IngestPipeline) Reindex(ctx context.Context) error {
	docs, err := p.docStore.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, doc := range docs {
		passages, err := p.docStore.GetPassages(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("load passages for %s: %w", doc.ID, err)
		}
		if err := p.index.Add(ctx, doc.ID, passages); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
	}

	logger.Debug("reindexed %d documents", len(docs))
	return nil
}
