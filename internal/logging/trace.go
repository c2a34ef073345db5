package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

var (
	// requestIDPool reuses byte slices for ID generation
	requestIDPool = sync.Pool{
		New: func() any {
			return make([]byte, 8)
		},
	}
)

// NewRequestID generates a unique request ID (16 hex chars).
func NewRequestID() string {
	buf := requestIDPool.Get().([]byte)
	defer requestIDPool.Put(buf)

	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// WithRequestID adds a request ID to context.
// If id is empty, generates a new one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewRequestID()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts request ID from context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
