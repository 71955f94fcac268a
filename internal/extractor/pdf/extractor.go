// Package pdf extracts page text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/logger"
)

// pdfMagic is the header every PDF file starts with.
const pdfMagic = "%PDF-"

// Extractor reads PDF bytes into per-page plain text. Extraction is
// all-or-nothing: a failure on any page fails the whole document and
// nothing is returned.
type Extractor struct{}

var _ driven.DocumentExtractor = (*Extractor)(nil)

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses data and returns one Page per PDF page, in document
// order. The DocumentID on the returned pages is left empty; the caller
// assigns it when the document is created.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("extract %s: %w", filename, domain.ErrEmptyContent)
	}
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return nil, fmt.Errorf("extract %s: missing %s header: %w", filename, pdfMagic, domain.ErrInvalidFormat)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w: %v", filename, domain.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	logger.Debug("extracting %d pages from %s", numPages, filename)

	pages := make([]domain.Page, 0, numPages)
	hasText := false
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract %s: %w", filename, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			return nil, fmt.Errorf("extract %s: page %d unreadable: %w", filename, i, domain.ErrExtraction)
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract %s: page %d: %w: %v", filename, i, domain.ErrExtraction, err)
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	if !hasText {
		return nil, fmt.Errorf("extract %s: no extractable text: %w", filename, domain.ErrExtraction)
	}
	return pages, nil
}
