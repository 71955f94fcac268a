package httpapi

import (
	"context"
	"time"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/core/ports/driving"
)

type mockIngestService struct {
	result   *domain.IngestResult
	docs     []domain.Document
	err      error
	filename string
	data     []byte
	deleted  string
}

var _ driving.IngestService = (*mockIngestService)(nil)

func (m *mockIngestService) Ingest(_ context.Context, filename string, data []byte) (*domain.IngestResult, error) {
	m.filename = filename
	m.data = data
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestService) Delete(_ context.Context, documentID string) error {
	m.deleted = documentID
	return m.err
}

func (m *mockIngestService) List(context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

type mockSessionService struct {
	session *domain.Session
	turns   []domain.Turn
	err     error
	deleted string
}

var _ driving.SessionService = (*mockSessionService)(nil)

func (m *mockSessionService) Create(context.Context) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockSessionService) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.turns, nil
}

func (m *mockSessionService) Delete(_ context.Context, sessionID string) error {
	m.deleted = sessionID
	return m.err
}

// mockChatService replays a fixed event sequence into the sink, or
// fails before the first event.
type mockChatService struct {
	events    []domain.StreamEvent
	err       error
	sessionID string
	prompt    string
	delay     time.Duration
}

var _ driving.ChatService = (*mockChatService)(nil)

func (m *mockChatService) Ask(ctx context.Context, sessionID, userText string, sink driven.TokenSink) error {
	m.sessionID = sessionID
	m.prompt = userText
	if m.err != nil {
		return m.err
	}
	for _, event := range m.events {
		if m.delay > 0 {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := sink.Send(event); err != nil {
			return err
		}
	}
	return nil
}
