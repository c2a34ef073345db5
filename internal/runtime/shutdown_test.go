package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)
	require.NotNil(t, m)
	assert.Equal(t, 5*time.Second, m.timeout)

	assert.Equal(t, DefaultShutdownTimeout, NewShutdownManager(0, nil).timeout)
}

func TestShutdownManager_Register(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var called int32
	m.Register("test-handler", func(ctx context.Context) error {
		atomic.AddInt32(&called, 1)
		return nil
	})
	m.RegisterSimple("simple-handler", func() {
		atomic.AddInt32(&called, 1)
	})

	m.Shutdown()

	assert.Equal(t, int32(2), atomic.LoadInt32(&called))
	assert.NoError(t, m.Err())
}

func TestShutdownManager_LIFOOrder(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"store", "server", "listener"} {
		name := name
		m.RegisterSimple(name, func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		})
	}

	m.Shutdown()
	assert.Equal(t, []string{"listener", "server", "store"}, order)
}

func TestShutdownManager_OnlyOnce(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var calls int32
	m.RegisterSimple("counter", func() { atomic.AddInt32(&calls, 1) })

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestShutdownManager_ContextCancelled(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)
	ctx := m.Context()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after shutdown")
	}

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed")
	}
}

func TestShutdownManager_Errors(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var after bool
	m.RegisterSimple("after", func() { after = true })
	m.Register("broken", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	m.Shutdown()

	err := m.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: close failed")
	assert.True(t, after, "a failing handler does not stop the rest")
}

func TestShutdownManager_Timeout(t *testing.T) {
	m := NewShutdownManager(50*time.Millisecond, nil)

	var skipped bool
	m.RegisterSimple("never", func() { skipped = true })
	m.Register("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	start := time.Now()
	m.Shutdown()

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	err := m.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, skipped)
}

func TestShutdownManager_ListenForSignalsStop(t *testing.T) {
	m := NewShutdownManager(time.Second, nil)
	stop := m.ListenForSignals()
	stop()
	stop()

	select {
	case <-m.Done():
		t.Fatal("stopping the listener must not shut down")
	default:
	}
}
