package domain

import "time"

// Document represents an ingested PDF with metadata.
// A Document is immutable once ingested; re-uploading the same file
// creates a new Document so index entries stay unambiguous.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original upload filename.
	Filename string

	// PageCount is the number of extracted pages.
	PageCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Page is one page of extracted text within a Document.
// Pages are created by the extractor and never mutated.
type Page struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Number is the 1-based page number.
	Number int

	// Text is the raw extracted page text.
	Text string
}

// Passage is a retrievable unit of document text.
// Passages are created at ingestion time, are immutable, and are removed
// only when their owning Document is deleted.
type Passage struct {
	// ID is the unique identifier for the passage.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Page is the 1-based number of the page the passage was cut from.
	Page int

	// StartOffset and EndOffset delimit the passage within the page text,
	// so Text == page.Text[StartOffset:EndOffset].
	StartOffset int
	EndOffset   int

	// Text is the passage content.
	Text string

	// Embedding is the vector representation used for similarity search.
	Embedding []float32
}

// ScoredPassage is a single retrieval hit. Produced transiently per query,
// never persisted.
type ScoredPassage struct {
	// Passage is the matched passage.
	Passage

	// Score is the cosine similarity to the query embedding.
	Score float64
}

// IngestResult summarises a successful ingestion.
type IngestResult struct {
	// DocumentID identifies the newly created document.
	DocumentID string `json:"document_id"`

	// PageCount is the number of pages extracted.
	PageCount int `json:"page_count"`

	// PassageCount is the number of passages indexed.
	PassageCount int `json:"passage_count"`
}
