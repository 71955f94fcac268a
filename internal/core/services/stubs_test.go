package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
)

// stubExtractor returns canned pages without parsing anything.
type stubExtractor struct {
	pages []domain.Page
	err   error
}

var _ driven.DocumentExtractor = (*stubExtractor)(nil)

func (s *stubExtractor) Extract(_ context.Context, _ string, _ []byte) ([]domain.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	pages := make([]domain.Page, len(s.pages))
	copy(pages, s.pages)
	return pages, nil
}

// failingEmbedder errors on every call.
type failingEmbedder struct {
	err error
}

var _ driven.EmbeddingService = (*failingEmbedder)(nil)

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, f.err }
func (f *failingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}
func (f *failingEmbedder) Dimensions() int   { return 0 }
func (f *failingEmbedder) ModelName() string { return "failing" }
func (f *failingEmbedder) Close() error      { return nil }

// zeroEmbedder returns embeddings with no dimensions, which the index
// rejects. Used to force an indexing failure after a successful save.
type zeroEmbedder struct{}

var _ driven.EmbeddingService = (*zeroEmbedder)(nil)

func (zeroEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (zeroEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (zeroEmbedder) Dimensions() int   { return 0 }
func (zeroEmbedder) ModelName() string { return "zero" }
func (zeroEmbedder) Close() error      { return nil }

// scriptedGenerator streams a fixed token sequence and records the
// prompt it was given.
type scriptedGenerator struct {
	tokens   []string
	startErr error

	// hold, when non-nil, blocks the stream before each Recv until the
	// channel is closed.
	hold chan struct{}

	mu       sync.Mutex
	messages []driven.ChatMessage
}

var _ driven.Generator = (*scriptedGenerator)(nil)

func (g *scriptedGenerator) Stream(
	ctx context.Context,
	messages []driven.ChatMessage,
	_ driven.GenerateOptions,
) (driven.TokenStream, error) {
	g.mu.Lock()
	g.messages = append([]driven.ChatMessage(nil), messages...)
	g.mu.Unlock()

	if g.startErr != nil {
		return nil, g.startErr
	}
	return &scriptedStream{ctx: ctx, tokens: g.tokens, hold: g.hold}, nil
}

func (g *scriptedGenerator) ModelName() string { return "scripted" }
func (g *scriptedGenerator) Close() error      { return nil }

func (g *scriptedGenerator) prompt() []driven.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.messages
}

// scriptedStream pops tokens one by one, honouring cancellation.
type scriptedStream struct {
	ctx    context.Context
	tokens []string
	hold   chan struct{}
	pos    int
}

var _ driven.TokenStream = (*scriptedStream)(nil)

func (s *scriptedStream) Recv() (string, error) {
	if s.hold != nil {
		select {
		case <-s.hold:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	token := s.tokens[s.pos]
	s.pos++
	return token, nil
}

func (s *scriptedStream) Close() error { return nil }

// streamGenerator hands out a prepared stream.
type streamGenerator struct {
	stream driven.TokenStream
}

var _ driven.Generator = (*streamGenerator)(nil)

func (g *streamGenerator) Stream(
	context.Context,
	[]driven.ChatMessage,
	driven.GenerateOptions,
) (driven.TokenStream, error) {
	return g.stream, nil
}

func (g *streamGenerator) ModelName() string { return "stream" }
func (g *streamGenerator) Close() error      { return nil }

// connStream mimics a network-backed stream: the scripted tokens arrive
// at once, then Recv parks in a read that only Close can break, after
// which it reports the broken connection.
type connStream struct {
	mu     sync.Mutex
	tokens []string
	pos    int

	parked    chan struct{} // closed once Recv is waiting on the connection
	closed    chan struct{}
	parkOnce  sync.Once
	closeOnce sync.Once
}

var _ driven.TokenStream = (*connStream)(nil)

func newConnStream(tokens []string) *connStream {
	return &connStream{
		tokens: tokens,
		parked: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (s *connStream) Recv() (string, error) {
	s.mu.Lock()
	if s.pos < len(s.tokens) {
		token := s.tokens[s.pos]
		s.pos++
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	s.parkOnce.Do(func() { close(s.parked) })
	<-s.closed
	return "", errors.New("use of closed connection")
}

func (s *connStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// recorderSink collects events and can simulate a consumer that goes
// away after a number of sends.
type recorderSink struct {
	mu        sync.Mutex
	events    []domain.StreamEvent
	failAfter int // fail on send number failAfter+1; negative means never
	onSend    func(event domain.StreamEvent)
	sendErr   error
}

var _ driven.TokenSink = (*recorderSink)(nil)

func newRecorderSink() *recorderSink {
	return &recorderSink{failAfter: -1}
}

func (r *recorderSink) Send(event domain.StreamEvent) error {
	r.mu.Lock()
	count := len(r.events)
	fail := r.failAfter >= 0 && count >= r.failAfter
	if !fail {
		r.events = append(r.events, event)
	}
	callback := r.onSend
	r.mu.Unlock()

	if fail {
		if r.sendErr != nil {
			return r.sendErr
		}
		return io.ErrClosedPipe
	}
	if callback != nil {
		callback(event)
	}
	return nil
}

func (r *recorderSink) recorded() []domain.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StreamEvent(nil), r.events...)
}
