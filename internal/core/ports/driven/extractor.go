package driven

import (
	"context"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// DocumentExtractor turns raw uploaded bytes into ordered page texts.
//
// Extraction is all-or-nothing per document: either every page is
// returned or the whole document fails. The extractor performs no
// storage writes; the ingestion pipeline decides persistence.
type DocumentExtractor interface {
	// Extract parses the given bytes and returns the page texts in
	// document order. Page numbers are assigned 1-based.
	//
	// Fails with domain.ErrInvalidFormat when the bytes are not a PDF,
	// domain.ErrEmptyContent for an empty upload, and
	// domain.ErrExtraction for malformed, encrypted or textless files.
	Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error)
}
