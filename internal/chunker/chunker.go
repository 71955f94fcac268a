// Package chunker splits page text into overlapping, size-bounded passages.
package chunker

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/core/domain"
)

// boundaryTolerance is the fraction of the chunk window in which a
// sentence or paragraph boundary is preferred over a hard split. A
// boundary inside the last 30% of the window wins; otherwise the chunk
// is cut at the character limit.
const boundaryTolerance = 0.7

// Chunker splits pages into passages. Passages never span pages, so
// every offset pair indexes into a single page text.
type Chunker struct {
	cfg domain.ChunkConfig
}

// New creates a chunker. The configuration is validated once here;
// chunking itself never fails on content.
func New(cfg domain.ChunkConfig) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Split cuts the given pages into passages with page back-references
// and character offsets. Consecutive passages of a page overlap by
// OverlapChars; concatenating their non-overlapping prefixes yields the
// page text exactly.
func (c *Chunker) Split(pages []domain.Page) []domain.Passage {
	var passages []domain.Passage
	for _, page := range pages {
		passages = append(passages, c.splitPage(page)...)
	}
	return passages
}

// splitPage cuts a single page. Empty pages produce no passages.
func (c *Chunker) splitPage(page domain.Page) []domain.Passage {
	text := page.Text
	if text == "" {
		return nil
	}

	maxChars := c.cfg.MaxChunkChars
	overlap := c.cfg.OverlapChars

	var passages []domain.Passage
	start := 0
	for start < len(text) {
		end := start + maxChars
		if end >= len(text) {
			end = len(text)
		} else if b := c.boundaryEnd(text, start, end); b > 0 {
			end = b
		} else {
			// A hard split can land inside a multi-byte rune; back the
			// cut off to the rune start so every passage is valid UTF-8.
			// The overlap floor keeps the next start advancing.
			for end > start+overlap+1 && !utf8.RuneStart(text[end]) {
				end--
			}
		}

		passages = append(passages, domain.Passage{
			ID:          uuid.New().String(),
			DocumentID:  page.DocumentID,
			Page:        page.Number,
			StartOffset: start,
			EndOffset:   end,
			Text:        text[start:end],
		})

		if end == len(text) {
			break
		}
		// The next passage re-reads the overlap so no unit spanning the
		// split point is lost to either neighbour. Progress is
		// guaranteed because overlap < maxChars and boundary ends
		// shorter than the overlap are rejected. Stepping back by
		// overlap bytes can land inside a rune; moving forward to the
		// next rune start only shrinks the overlap.
		start = end - overlap
		for start < len(text) && !utf8.RuneStart(text[start]) {
			start++
		}
	}

	return passages
}

// boundaryEnd returns the preferred cut position inside (start, end],
// or 0 when no acceptable boundary exists. A cut is acceptable when it
// sits after a sentence terminator or newline, lies within the
// tolerance window, and still advances past the overlap.
func (c *Chunker) boundaryEnd(text string, start, end int) int {
	minEnd := start + int(float64(c.cfg.MaxChunkChars)*boundaryTolerance)
	if floor := start + c.cfg.OverlapChars + 1; minEnd < floor {
		minEnd = floor
	}
	for i := end; i > minEnd; i-- {
		if isBoundary(text[i-1]) {
			return i
		}
	}
	return 0
}

// isBoundary reports whether b terminates a sentence or paragraph.
func isBoundary(b byte) bool {
	switch b {
	case '.', '!', '?', '\n':
		return true
	default:
		return false
	}
}
