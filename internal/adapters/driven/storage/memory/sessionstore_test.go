package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/core/domain"
)

func TestSessionStore_CreateGetDelete(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()

	session, err := store.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.GetSession(ctx, session.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSessionStore_SinglePendingTurn(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	first, err := store.AppendTurn(ctx, session.ID, domain.Turn{
		Role: domain.RoleAssistant, Status: domain.TurnPending,
	})
	require.NoError(t, err)

	_, err = store.AppendTurn(ctx, session.ID, domain.Turn{
		Role: domain.RoleAssistant, Status: domain.TurnPending,
	})
	assert.True(t, errors.Is(err, domain.ErrTurnState))

	require.NoError(t, store.FinalizeTurn(ctx, first, domain.TurnComplete, "", nil))
	_, err = store.AppendTurn(ctx, session.ID, domain.Turn{
		Role: domain.RoleAssistant, Status: domain.TurnPending,
	})
	assert.NoError(t, err)
}

func TestSessionStore_AppendExchange(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	turnID, err := store.AppendExchange(ctx, session.ID, "hello")
	require.NoError(t, err)

	history, err := store.GetHistory(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, domain.TurnComplete, history[0].Status)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, domain.TurnPending, history[1].Status)
	assert.Equal(t, turnID, history[1].ID)

	// A second exchange while the slot is held fails whole: neither of
	// its turns is recorded.
	_, err = store.AppendExchange(ctx, session.ID, "too soon")
	assert.True(t, errors.Is(err, domain.ErrTurnState))
	history, err = store.GetHistory(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Finalizing frees the slot for the next exchange.
	require.NoError(t, store.FinalizeTurn(ctx, turnID, domain.TurnComplete, "", nil))
	_, err = store.AppendExchange(ctx, session.ID, "next question")
	assert.NoError(t, err)
}

func TestSessionStore_ConcurrentPendingAppends_OneWins(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = store.AppendTurn(ctx, session.ID, domain.Turn{
				Role: domain.RoleAssistant, Status: domain.TurnPending,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestSessionStore_TurnLifecycle(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	turnID, err := store.AppendTurn(ctx, session.ID, domain.Turn{
		Role: domain.RoleAssistant, Status: domain.TurnPending,
	})
	require.NoError(t, err)

	require.NoError(t, store.AppendToTurn(ctx, turnID, "Hel"))
	require.NoError(t, store.AppendToTurn(ctx, turnID, "lo"))
	require.NoError(t, store.FinalizeTurn(ctx, turnID, domain.TurnComplete, "", []string{"p-1"}))

	history, err := store.GetHistory(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Content)
	assert.Equal(t, []string{"p-1"}, history[0].Citations)

	assert.True(t, errors.Is(store.AppendToTurn(ctx, turnID, "x"), domain.ErrTurnState))
	assert.True(t, errors.Is(store.AppendToTurn(ctx, "missing", "x"), domain.ErrNotFound))
}

func TestSessionStore_HistoryWindow(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	for _, c := range []string{"a", "b", "c"} {
		_, err := store.AppendTurn(ctx, session.ID, domain.Turn{
			Role: domain.RoleUser, Content: c, Status: domain.TurnComplete,
		})
		require.NoError(t, err)
	}

	history, err := store.GetHistory(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].Content)
	assert.Equal(t, "c", history[1].Content)
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	current := time.Now().UTC()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}

	store := NewSessionStore(time.Hour, WithClock(clock))
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)

	turnID, err := store.AppendTurn(ctx, session.ID, domain.Turn{
		Role: domain.RoleAssistant, Status: domain.TurnPending,
	})
	require.NoError(t, err)

	// Activity keeps the session alive past the original deadline.
	advance(50 * time.Minute)
	require.NoError(t, store.AppendToTurn(ctx, turnID, "still here"))
	advance(50 * time.Minute)
	_, err = store.GetSession(ctx, session.ID)
	require.NoError(t, err)

	// Idle past the TTL: the session and its turns are gone.
	advance(2 * time.Hour)
	_, err = store.GetSession(ctx, session.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(store.AppendToTurn(ctx, turnID, "late"), domain.ErrNotFound))
}
