package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docuchat/docuchat/internal/core/domain"
	"github.com/docuchat/docuchat/internal/core/ports/driven"
	"github.com/docuchat/docuchat/internal/core/ports/driving"
	"github.com/docuchat/docuchat/internal/logger"
)

// Ensure ChatOrchestrator implements the interface.
var _ driving.ChatService = (*ChatOrchestrator)(nil)

// tokenBufferSize is the bounded channel between the generator reader
// and the sink writer. A slow sink fills the buffer and blocks the
// reader, which turns into backpressure on the provider connection
// instead of unbounded memory growth.
const tokenBufferSize = 32

// systemPromptHeader instructs the model to answer from the retrieved
// passages.
const systemPromptHeader = `You are a helpful assistant answering questions about uploaded documents.
Use only the context passages below to answer. If the context does not
contain the answer, say so instead of guessing.`

// ChatOrchestrator answers one user turn with a streamed,
// retrieval-grounded response.
type ChatOrchestrator struct {
	sessions  driven.SessionStore
	index     driven.PassageIndex
	embedder  driven.EmbeddingService
	generator driven.Generator
	settings  domain.Settings
}

// NewChatOrchestrator creates the chat orchestrator. generator may be
// nil when the configured provider cannot generate; Ask then fails
// before touching the session.
func NewChatOrchestrator(
	sessions driven.SessionStore,
	index driven.PassageIndex,
	embedder driven.EmbeddingService,
	generator driven.Generator,
	settings domain.Settings,
) *ChatOrchestrator {
	return &ChatOrchestrator{
		sessions:  sessions,
		index:     index,
		embedder:  embedder,
		generator: generator,
		settings:  settings,
	}
}

// tokenResult is one read off the generator stream.
type tokenResult struct {
	token string
	err   error
}

// Ask runs one query turn end to end: validate, record the user turn,
// claim the pending assistant turn, retrieve, generate and stream.
// Exactly one terminal event is delivered to sink, and the assistant
// turn never stays pending past the return.
func (o *ChatOrchestrator) Ask(
	ctx context.Context,
	sessionID string,
	userText string,
	sink driven.TokenSink,
) error {
	logger.Section("Chat")

	// 1. Validate before mutating anything
	if strings.TrimSpace(userText) == "" {
		return fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}
	if o.generator == nil {
		return fmt.Errorf("no generation backend configured: %w", domain.ErrGeneratorUnavailable)
	}
	if _, err := o.sessions.GetSession(ctx, sessionID); err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	// 2. Snapshot the history window before this turn is added
	history, err := o.sessions.GetHistory(ctx, sessionID, o.settings.MaxHistoryTurns)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	// 3. Record the user turn and claim the one pending assistant slot
	// in a single step. Concurrent questions on the same session lose
	// here with ErrTurnState before anything is recorded, so a losing
	// question never leaves an unanswered user turn behind.
	turnID, err := o.sessions.AppendExchange(ctx, sessionID, userText)
	if err != nil {
		return fmt.Errorf("claim assistant turn: %w", err)
	}

	// From here on the pending turn must not leak: any path that does
	// not finalize explicitly is caught by the guard.
	finalized := false
	defer func() {
		if !finalized {
			o.finalize(turnID, domain.TurnFailed, domain.ReasonGenerationFailed, nil)
		}
	}()

	// 4. Retrieve context passages
	scored, err := o.retrieve(ctx, userText)
	if err != nil {
		o.finalize(turnID, domain.TurnFailed, domain.ReasonRetrievalUnavailable, nil)
		finalized = true
		o.emit(sink, domain.StreamEvent{
			Type:   domain.EventFailed,
			TurnID: turnID,
			Reason: domain.ReasonRetrievalUnavailable,
		})
		return fmt.Errorf("retrieve: %w", err)
	}

	citations := make([]string, len(scored))
	for i, sp := range scored {
		citations[i] = sp.ID
	}

	// 5. Generate with the configured timeout
	genCtx, cancel := context.WithTimeout(ctx, o.settings.GenerationTimeout)
	defer cancel()

	stream, err := o.generator.Stream(genCtx, o.buildPrompt(history, scored, userText), driven.GenerateOptions{})
	if err != nil {
		o.finalize(turnID, domain.TurnFailed, domain.ReasonGenerationFailed, nil)
		finalized = true
		o.emit(sink, domain.StreamEvent{
			Type:   domain.EventFailed,
			TurnID: turnID,
			Reason: domain.ReasonGenerationFailed,
		})
		return fmt.Errorf("start generation: %w", err)
	}
	defer stream.Close()

	// 6. Pump tokens through a bounded buffer
	status, reason, streamErr := o.pump(ctx, genCtx, stream, sink, turnID)

	// 7. Freeze the turn and deliver the terminal event
	if reason == domain.ReasonTimeout {
		streamErr = fmt.Errorf("generation exceeded %s: %w",
			o.settings.GenerationTimeout, domain.ErrGenerationTimeout)
	}
	var finalCitations []string
	if status == domain.TurnComplete {
		finalCitations = citations
	}
	o.finalize(turnID, status, reason, finalCitations)
	finalized = true

	switch {
	case status == domain.TurnComplete:
		o.emit(sink, domain.StreamEvent{
			Type:      domain.EventCompleted,
			TurnID:    turnID,
			Citations: citations,
		})
		return nil
	case reason == domain.ReasonCancelled:
		// Best effort: the client is usually gone already.
		o.emit(sink, domain.StreamEvent{
			Type:   domain.EventCancelled,
			TurnID: turnID,
			Reason: domain.ReasonCancelled,
		})
		return streamErr
	default:
		o.emit(sink, domain.StreamEvent{
			Type:   domain.EventFailed,
			TurnID: turnID,
			Reason: reason,
		})
		return streamErr
	}
}

// retrieve embeds the question and searches the index.
func (o *ChatOrchestrator) retrieve(ctx context.Context, userText string) ([]domain.ScoredPassage, error) {
	query, err := o.embedder.Embed(ctx, userText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := o.index.Search(ctx, query, o.settings.TopK, o.settings.MinScore)
	if err != nil {
		return nil, err
	}
	logger.Debug("retrieved %d passages", len(scored))
	return scored, nil
}

// pump moves tokens from the generator stream to the sink, recording
// each delta on the pending turn. It returns the final turn status, the
// failure reason for non-complete outcomes, and the error to surface.
func (o *ChatOrchestrator) pump(
	ctx context.Context,
	genCtx context.Context,
	stream driven.TokenStream,
	sink driven.TokenSink,
	turnID string,
) (domain.TurnStatus, string, error) {
	tokens := make(chan tokenResult, tokenBufferSize)
	go func() {
		defer close(tokens)
		for {
			token, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					// The consumer may have left with the buffer full; the
					// error send must not park this goroutine forever.
					select {
					case tokens <- tokenResult{err: err}:
					case <-genCtx.Done():
					}
				}
				return
			}
			select {
			case tokens <- tokenResult{token: token}:
			case <-genCtx.Done():
				return
			}
		}
	}()

	for {
		// Checked before draining the buffer: once cancellation is
		// observed, not a single further token event goes out.
		if genCtx.Err() != nil {
			stream.Close()
			return domain.TurnFailed, o.cancelReason(ctx, genCtx), genCtx.Err()
		}

		select {
		case <-genCtx.Done():
			stream.Close()
			return domain.TurnFailed, o.cancelReason(ctx, genCtx), genCtx.Err()

		case result, ok := <-tokens:
			if !ok {
				return domain.TurnComplete, "", nil
			}
			if result.err != nil {
				// The stream breaking because we were cancelled is a
				// cancellation, not a generation failure.
				if genCtx.Err() != nil {
					return domain.TurnFailed, o.cancelReason(ctx, genCtx), genCtx.Err()
				}
				return domain.TurnFailed, domain.ReasonGenerationFailed,
					fmt.Errorf("generation stream: %w", result.err)
			}

			if err := o.sessions.AppendToTurn(ctx, turnID, result.token); err != nil {
				stream.Close()
				if errors.Is(err, domain.ErrNotFound) {
					// The session (and the turn with it) was deleted or
					// expired mid-stream.
					return domain.TurnFailed, domain.ReasonSessionExpired,
						fmt.Errorf("session gone mid-stream: %w", domain.ErrSessionExpired)
				}
				return domain.TurnFailed, domain.ReasonGenerationFailed,
					fmt.Errorf("record token: %w", err)
			}

			if err := sink.Send(domain.StreamEvent{
				Type:   domain.EventToken,
				Token:  result.token,
				TurnID: turnID,
			}); err != nil {
				// The consumer is gone; stop generating.
				stream.Close()
				return domain.TurnFailed, domain.ReasonCancelled,
					fmt.Errorf("deliver token: %w", err)
			}
		}
	}
}

// cancelReason tells a client cancellation apart from the generation
// deadline.
func (o *ChatOrchestrator) cancelReason(ctx context.Context, genCtx context.Context) string {
	if ctx.Err() != nil {
		return domain.ReasonCancelled
	}
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	return domain.ReasonCancelled
}

// buildPrompt assembles the generation messages: grounding system
// prompt, the recent history window, then the current question.
func (o *ChatOrchestrator) buildPrompt(
	history []domain.Turn,
	scored []domain.ScoredPassage,
	userText string,
) []driven.ChatMessage {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	if len(scored) == 0 {
		b.WriteString("\n\nNo context passages matched this question.")
	} else {
		b.WriteString("\n\nContext passages:")
		for i, sp := range scored {
			fmt.Fprintf(&b, "\n\n[%d] (page %d)\n%s", i+1, sp.Page, sp.Text)
		}
	}

	messages := []driven.ChatMessage{{Role: "system", Content: b.String()}}
	for _, turn := range history {
		// Unfinished or failed turns would only confuse the model.
		if turn.Status != domain.TurnComplete {
			continue
		}
		messages = append(messages, driven.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: userText})
	return messages
}

// finalize freezes the turn, tolerating the turn having vanished with
// its session. It deliberately ignores ErrTurnState: a concurrent
// finalize already settled the turn.
func (o *ChatOrchestrator) finalize(turnID string, status domain.TurnStatus, reason string, citations []string) {
	// The request context may already be cancelled; finalization must
	// still go through.
	err := o.sessions.FinalizeTurn(context.Background(), turnID, status, reason, citations)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrTurnState) {
		logger.Error("finalize turn %s: %v", turnID, err)
	}
}

// emit delivers a terminal event, best effort.
func (o *ChatOrchestrator) emit(sink driven.TokenSink, event domain.StreamEvent) {
	if err := sink.Send(event); err != nil {
		logger.Debug("terminal event not delivered: %v", err)
	}
}
