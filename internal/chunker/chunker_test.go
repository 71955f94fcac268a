package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/core/domain"
)

func newChunker(t *testing.T, maxChars, overlap int) *Chunker {
	t.Helper()
	c, err := New(domain.ChunkConfig{MaxChunkChars: maxChars, OverlapChars: overlap})
	require.NoError(t, err)
	return c
}

func page(num int, text string) domain.Page {
	return domain.Page{DocumentID: "doc-1", Number: num, Text: text}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		overlap  int
	}{
		{"zero max", 0, 0},
		{"negative max", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max", 100, 100},
		{"overlap exceeds max", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(domain.ChunkConfig{MaxChunkChars: tt.maxChars, OverlapChars: tt.overlap})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidChunkConfig))
		})
	}
}

func TestSplit_ShortPageSinglePassage(t *testing.T) {
	c := newChunker(t, 20, 5)

	passages := c.Split([]domain.Page{page(1, "Alpha Beta Gamma.")})

	require.Len(t, passages, 1)
	p := passages[0]
	assert.Equal(t, "Alpha Beta Gamma.", p.Text)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 0, p.StartOffset)
	assert.Equal(t, 17, p.EndOffset)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "doc-1", p.DocumentID)
}

func TestSplit_EmptyPage(t *testing.T) {
	c := newChunker(t, 20, 5)
	assert.Empty(t, c.Split([]domain.Page{page(1, "")}))
}

func TestSplit_OffsetsMatchPageText(t *testing.T) {
	c := newChunker(t, 50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)

	passages := c.Split([]domain.Page{page(1, text)})

	require.Greater(t, len(passages), 1)
	for _, p := range passages {
		assert.Equal(t, text[p.StartOffset:p.EndOffset], p.Text)
		assert.LessOrEqual(t, p.EndOffset-p.StartOffset, 50)
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	c := newChunker(t, 20, 5)

	// A period sits at offset 15, inside the last 30% of the 20-char
	// window, so the first cut should land there instead of at 20.
	passages := c.Split([]domain.Page{page(1, "One. Two. Three. Four. Five.")})

	require.Greater(t, len(passages), 1)
	assert.Equal(t, "One. Two. Three.", passages[0].Text)
	assert.Equal(t, 16, passages[0].EndOffset)
	assert.Equal(t, 11, passages[1].StartOffset)
}

func TestSplit_HardSplitWithoutBoundary(t *testing.T) {
	c := newChunker(t, 10, 2)

	passages := c.Split([]domain.Page{page(1, strings.Repeat("x", 25))})

	require.Greater(t, len(passages), 1)
	assert.Equal(t, 10, passages[0].EndOffset)
	assert.Equal(t, 8, passages[1].StartOffset)
}

func TestSplit_HardSplitKeepsRunesIntact(t *testing.T) {
	// 3-byte runes with no sentence boundaries force hard splits that
	// would otherwise land mid-rune.
	c := newChunker(t, 10, 2)
	pages := []domain.Page{
		page(1, strings.Repeat("世界和平", 10)),
		page(2, strings.Repeat("café crème brûlée ", 8)),
	}

	passages := c.Split(pages)

	require.Greater(t, len(passages), 2)
	for _, p := range passages {
		assert.True(t, utf8.ValidString(p.Text), "passage %q holds a split rune", p.Text)
		text := pages[p.Page-1].Text
		assert.Equal(t, text[p.StartOffset:p.EndOffset], p.Text)
	}
	last := passages[len(passages)-1]
	assert.Equal(t, len(pages[1].Text), last.EndOffset)
}

func TestSplit_ConsecutivePassagesOverlap(t *testing.T) {
	c := newChunker(t, 10, 3)
	text := strings.Repeat("y", 40)

	passages := c.Split([]domain.Page{page(1, text)})

	require.Greater(t, len(passages), 1)
	for i := 1; i < len(passages); i++ {
		assert.Equal(t, passages[i-1].EndOffset-3, passages[i].StartOffset)
	}
}

func TestSplit_NonOverlapConcatenationRebuildsPage(t *testing.T) {
	c := newChunker(t, 30, 8)
	text := strings.Repeat("Sentences vary in length here. Some are short. Others run on a bit longer than that. ", 4)

	passages := c.Split([]domain.Page{page(1, text)})
	require.NotEmpty(t, passages)

	var b strings.Builder
	for i, p := range passages {
		if i < len(passages)-1 {
			b.WriteString(p.Text[:passages[i+1].StartOffset-p.StartOffset])
		} else {
			b.WriteString(p.Text)
		}
	}
	assert.Equal(t, text, b.String())
}

func TestSplit_PassagesNeverSpanPages(t *testing.T) {
	c := newChunker(t, 20, 5)

	passages := c.Split([]domain.Page{
		page(1, "Alpha Beta Gamma."),
		page(2, "Delta Epsilon."),
	})

	require.Len(t, passages, 2)
	assert.Equal(t, 1, passages[0].Page)
	assert.Equal(t, "Alpha Beta Gamma.", passages[0].Text)
	assert.Equal(t, 2, passages[1].Page)
	assert.Equal(t, "Delta Epsilon.", passages[1].Text)
}

func TestSplit_UniquePassageIDs(t *testing.T) {
	c := newChunker(t, 10, 2)

	passages := c.Split([]domain.Page{page(1, strings.Repeat("z", 60))})

	seen := make(map[string]bool)
	for _, p := range passages {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}
