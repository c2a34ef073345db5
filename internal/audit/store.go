package audit

import (
	"context"
	"sync"

	"github.com/joss/taskd/internal/store"
)

// Filter keys understood by Store.Recent.
const (
	FieldKind = "kind"
	FieldTool = "tool"
)

// Store persists audit events.
type Store interface {
	store.Store
	Save(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// Recent lists events newest first.
	Recent(ctx context.Context, f store.Filter) ([]Event, error)
}

// DefaultMemoryCapacity bounds the in-memory ring buffer.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent events in a ring buffer.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
	closed bool
}

// NewMemoryStore creates a ring buffer holding up to capacity events.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{events: make([]Event, capacity)}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.events[s.next] = *e
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.newestFirst() {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, store.NewNotFoundError("audit event", id)
}

func (s *MemoryStore) Recent(ctx context.Context, f store.Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	var matched []Event
	for _, e := range s.newestFirst() {
		if matches(e, f.Where) {
			matched = append(matched, e)
		}
	}
	start, end := f.Window(len(matched))
	return matched[start:end], nil
}

// newestFirst walks the ring backwards from the last write. Caller holds the lock.
func (s *MemoryStore) newestFirst() []Event {
	n := s.next
	if s.full {
		n = len(s.events)
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.events)) % len(s.events)
		out = append(out, s.events[idx])
	}
	return out
}

func matches(e Event, where map[string]string) bool {
	for field, want := range where {
		switch field {
		case FieldKind:
			if string(e.Kind) != want {
				return false
			}
		case FieldTool:
			if e.Tool != want {
				return false
			}
		}
	}
	return true
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
