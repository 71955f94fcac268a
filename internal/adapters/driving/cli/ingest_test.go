package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file.pdf]", ingestCmd.Use)
}

func TestIngestCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "ingest")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngestCmd_IngestsFile(t *testing.T) {
	ingest := &fakeIngestService{result: &domain.IngestResult{
		DocumentID: "doc-1", PageCount: 4, PassageCount: 12,
	}}
	cleanup := setupTestServices(ingest, nil, nil)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 test"), 0o644))

	out, err := execute(t, "ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested report.pdf")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Pages:    4")
	assert.Contains(t, out, "Passages: 12")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices(&fakeIngestService{}, nil, nil)
	defer cleanup()

	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "nope.pdf"))

	assert.Error(t, err)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestService
	ingestService = nil
	defer func() {
		ingestService = oldService
	}()

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-"), 0o644))

	_, err := execute(t, "ingest", path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestIngestCmd_IngestFailure(t *testing.T) {
	cleanup := setupTestServices(&fakeIngestService{err: domain.ErrInvalidFormat}, nil, nil)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := execute(t, "ingest", path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest failed")
}
