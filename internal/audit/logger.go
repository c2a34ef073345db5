package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/store"
)

// Logger stamps and persists audit events.
type Logger struct {
	store Store
	log   *logging.Logger
}

// LoggerOption configures the logger.
type LoggerOption func(*Logger)

// WithLog sets where persistence failures are reported.
func WithLog(l *logging.Logger) LoggerOption {
	return func(a *Logger) {
		a.log = l
	}
}

// NewLogger creates an audit logger writing to s.
// A nil store gets an in-memory ring buffer.
func NewLogger(s Store, opts ...LoggerOption) *Logger {
	if s == nil {
		s = NewMemoryStore(DefaultMemoryCapacity)
	}
	l := &Logger{store: s, log: logging.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the backing store.
func (l *Logger) Store() Store { return l.store }

// Start begins tracking an operation.
func (l *Logger) Start(kind Kind) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

// Log persists a completed event. Failures are logged, never returned,
// so auditing cannot fail the operation it describes.
func (l *Logger) Log(ctx context.Context, e *Event) {
	if e.CreatedAt.IsZero() {
		e.Complete(nil)
	}
	if e.RequestID == "" {
		e.RequestID = logging.GetRequestID(ctx)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := l.store.Save(saveCtx, e); err != nil {
		l.log.Warn("audit_save_failed", map[string]any{
			"id":   e.ID,
			"kind": string(e.Kind),
		}, err)
	}
}

// Recent lists persisted events newest first.
func (l *Logger) Recent(ctx context.Context, f store.Filter) ([]Event, error) {
	return l.store.Recent(ctx, f)
}
