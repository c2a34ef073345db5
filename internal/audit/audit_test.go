package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/store"
)

func TestEventComplete(t *testing.T) {
	e := &Event{ID: "test-123", Kind: KindToolCall, StartedAt: time.Now().Add(-5 * time.Millisecond)}
	e.Complete(nil)

	assert.True(t, e.Success)
	assert.Empty(t, e.Error)
	assert.GreaterOrEqual(t, e.DurationMs, int64(5))
	assert.False(t, e.CreatedAt.IsZero())

	failed := &Event{ID: "test-456", Kind: KindToolCall, StartedAt: time.Now()}
	failed.Complete(errors.New("division by zero"))
	assert.False(t, failed.Success)
	assert.Equal(t, "division by zero", failed.Error)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindToolCall.Valid())
	assert.True(t, KindAgentRun.Valid())
	assert.False(t, Kind("other").Valid())
}

// storeFactories runs the same contract against every backend.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(10) },
		"sqlite": func() Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "audit.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func seed(t *testing.T, s Store) []*Event {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []*Event
	for i := 0; i < 5; i++ {
		e := &Event{
			ID:        fmt.Sprintf("evt-%d", i),
			Kind:      KindToolCall,
			Tool:      "echo",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i%2 == 1 {
			e.Kind = KindAgentRun
			e.Tool = "calculator"
			e.Task = "use calculator"
		}
		require.NoError(t, s.Save(context.Background(), e))
		out = append(out, e)
	}
	return out
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestStoreRecent(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			ctx := context.Background()
			seed(t, s)

			require.NoError(t, s.Ping(ctx))

			all, err := s.Recent(ctx, store.Filter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"evt-4", "evt-3", "evt-2", "evt-1", "evt-0"}, ids(all))

			limited, err := s.Recent(ctx, store.DefaultFilter().WithLimit(2))
			require.NoError(t, err)
			assert.Equal(t, []string{"evt-4", "evt-3"}, ids(limited))

			paged, err := s.Recent(ctx, store.Filter{Limit: 2, Offset: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"evt-3", "evt-2"}, ids(paged))

			runs, err := s.Recent(ctx, store.DefaultFilter().WithWhere(FieldKind, string(KindAgentRun)))
			require.NoError(t, err)
			assert.Equal(t, []string{"evt-3", "evt-1"}, ids(runs))
			assert.Equal(t, "use calculator", runs[0].Task)

			echoes, err := s.Recent(ctx, store.DefaultFilter().WithWhere(FieldTool, "echo"))
			require.NoError(t, err)
			assert.Len(t, echoes, 3)
		})
	}
}

func TestStoreGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			ctx := context.Background()
			events := seed(t, s)

			got, err := s.Get(ctx, "evt-2")
			require.NoError(t, err)
			assert.Equal(t, events[2].Tool, got.Tool)
			assert.True(t, got.CreatedAt.Equal(events[2].CreatedAt))

			_, err = s.Get(ctx, "missing")
			require.Error(t, err)
			assert.True(t, store.IsNotFound(err))
		})
	}
}

func TestMemoryStoreWrapsAround(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, &Event{ID: fmt.Sprintf("e%d", i), Kind: KindToolCall}))
	}

	events, err := s.Recent(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e4", "e3", "e2"}, ids(events))
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore(0)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrClosed)
	assert.ErrorIs(t, s.Save(context.Background(), &Event{}), store.ErrClosed)
}

func TestLoggerStartAndLog(t *testing.T) {
	s := NewMemoryStore(10)
	l := NewLogger(s)

	ctx := logging.WithRequestID(context.Background(), "req-1")
	e := l.Start(KindToolCall)
	e.Tool = "echo"
	require.Len(t, e.ID, 36)

	e.Complete(nil)
	l.Log(ctx, e)

	events, err := l.Recent(context.Background(), store.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.True(t, events[0].Success)
}

func TestLoggerSaveFailureIsLogged(t *testing.T) {
	s := NewMemoryStore(10)
	require.NoError(t, s.Close())

	var buf bytes.Buffer
	l := NewLogger(s, WithLog(logging.New(&buf, logging.LevelInfo)))

	l.Log(context.Background(), l.Start(KindAgentRun))
	assert.Contains(t, buf.String(), "audit_save_failed")
}

func TestNewLoggerDefaultsToMemory(t *testing.T) {
	l := NewLogger(nil)
	_, ok := l.Store().(*MemoryStore)
	assert.True(t, ok)
}
