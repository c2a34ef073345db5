// Package runtime provides graceful shutdown handling for taskd processes.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joss/taskd/internal/logging"
)

// ShutdownFunc is a cleanup function called during shutdown
type ShutdownFunc func(ctx context.Context) error

// ShutdownManager handles graceful shutdown of the application
type ShutdownManager struct {
	mu          sync.Mutex
	handlers    []namedHandler
	timeout     time.Duration
	log         *logging.Logger
	shutdownCtx context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	once        sync.Once
	err         error
}

type namedHandler struct {
	name string
	fn   ShutdownFunc
}

// DefaultShutdownTimeout is the default timeout for cleanup operations
const DefaultShutdownTimeout = 10 * time.Second

// NewShutdownManager creates a new shutdown manager with specified timeout
func NewShutdownManager(timeout time.Duration, log *logging.Logger) *ShutdownManager {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownManager{
		timeout:     timeout,
		log:         log,
		shutdownCtx: ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Register adds a cleanup handler to be called during shutdown.
// Handlers run one at a time, last registered first.
func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, namedHandler{name: name, fn: fn})
}

// RegisterSimple adds a simple cleanup function (no error return)
func (m *ShutdownManager) RegisterSimple(name string, fn func()) {
	m.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// Context returns a context that is cancelled when shutdown begins
func (m *ShutdownManager) Context() context.Context {
	return m.shutdownCtx
}

// Done returns a channel that's closed when shutdown is complete
func (m *ShutdownManager) Done() <-chan struct{} {
	return m.done
}

// Err returns the joined handler errors once shutdown is complete.
func (m *ShutdownManager) Err() error {
	<-m.done
	return m.err
}

// ListenForSignals starts listening for SIGTERM and SIGINT.
// Non-blocking; the returned func stops listening.
func (m *ShutdownManager) ListenForSignals() (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			m.log.Info("signal_received", map[string]any{"signal": sig.String()})
			m.Shutdown()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(quit)
		})
	}
}

// Shutdown initiates graceful shutdown - can only be called once
func (m *ShutdownManager) Shutdown() {
	m.once.Do(m.performShutdown)
}

func (m *ShutdownManager) performShutdown() {
	defer close(m.done)

	m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	handlers := make([]namedHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	start := time.Now()
	m.log.Info("shutdown_started", map[string]any{"handlers": len(handlers)})

	var errs []error
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: skipped: %w", h.name, ctx.Err()))
			continue
		}

		hStart := time.Now()
		if err := runHandler(ctx, h); err != nil {
			m.log.Error("shutdown_handler_failed", map[string]any{"handler": h.name}, err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		m.log.TimedEvent("shutdown_handler_done", hStart, map[string]any{"handler": h.name})
	}

	m.err = errors.Join(errs...)
	m.log.TimedEvent("shutdown_complete", start, map[string]any{"errors": len(errs)})
}

// runHandler waits for h or the shutdown deadline, whichever is first.
func runHandler(ctx context.Context, h namedHandler) error {
	result := make(chan error, 1)
	go func() { result <- h.fn(ctx) }()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out: %w", ctx.Err())
	}
}

// WaitForShutdown blocks until shutdown is complete
func (m *ShutdownManager) WaitForShutdown() {
	<-m.done
}
