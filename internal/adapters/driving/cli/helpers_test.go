package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

type fakeIngestService struct {
	result  *domain.IngestResult
	docs    []domain.Document
	err     error
	deleted string
}

func (f *fakeIngestService) Ingest(_ context.Context, filename string, data []byte) (*domain.IngestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeIngestService) Delete(_ context.Context, documentID string) error {
	f.deleted = documentID
	return f.err
}

func (f *fakeIngestService) List(context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeSessionService struct {
	session *domain.Session
	err     error
}

func (f *fakeSessionService) Create(context.Context) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeSessionService) History(context.Context, string) ([]domain.Turn, error) {
	return nil, f.err
}

func (f *fakeSessionService) Delete(context.Context, string) error {
	return f.err
}

type fakeChatService struct {
	events []domain.StreamEvent
	err    error
	asked  []string
}

func (f *fakeChatService) Ask(_ context.Context, _ string, userText string, sink driven.TokenSink) error {
	f.asked = append(f.asked, userText)
	if f.err != nil {
		return f.err
	}
	for _, event := range f.events {
		if err := sink.Send(event); err != nil {
			return err
		}
	}
	return nil
}

// setupTestServices wires fake services and returns a restore func.
func setupTestServices(ingest *fakeIngestService, chat *fakeChatService, sessions *fakeSessionService) func() {
	oldIngest, oldChat, oldSessions, oldServe := ingestService, chatService, sessionService, serveFunc
	if ingest != nil {
		ingestService = ingest
	}
	if chat != nil {
		chatService = chat
	}
	if sessions != nil {
		sessionService = sessions
	}
	return func() {
		ingestService, chatService, sessionService, serveFunc = oldIngest, oldChat, oldSessions, oldServe
	}
}

// execute runs the root command with args, capturing combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleDocument() domain.Document {
	return domain.Document{
		ID:        "doc-1",
		Filename:  "report.pdf",
		PageCount: 4,
		CreatedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}
