// Package store provides the interfaces shared by taskd persistence backends.
package store

import (
	"context"
)

// Store is the minimal interface all stores must implement.
type Store interface {
	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// Filter defines query parameters for listing records.
type Filter struct {
	Limit  int               // Maximum results (0 = no limit)
	Offset int               // Skip first N results
	Where  map[string]string // Exact-match field conditions
}

// DefaultFilter returns a filter with sensible defaults.
func DefaultFilter() Filter {
	return Filter{Limit: 100}
}

// WithLimit returns a copy of the filter with a new limit.
func (f Filter) WithLimit(n int) Filter {
	f.Limit = n
	return f
}

// WithOffset returns a copy of the filter with a new offset.
func (f Filter) WithOffset(n int) Filter {
	f.Offset = n
	return f
}

// WithWhere returns a copy of the filter with an added condition.
// The condition map is copied so the receiver is never mutated.
func (f Filter) WithWhere(field, value string) Filter {
	where := make(map[string]string, len(f.Where)+1)
	for k, v := range f.Where {
		where[k] = v
	}
	where[field] = value
	f.Where = where
	return f
}

// Window applies offset and limit to a slice length n and returns
// the [start, end) bounds to keep.
func (f Filter) Window(n int) (int, int) {
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return start, end
}
