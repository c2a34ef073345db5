// Package audit records a summary of every tool call and agent run.
package audit

import (
	"time"
)

// Kind is the type of operation being audited.
type Kind string

const (
	KindToolCall Kind = "tool_call"
	KindAgentRun Kind = "agent_run"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindToolCall || k == KindAgentRun
}

// Event is a single auditable operation.
type Event struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Subject
	Tool string `json:"tool,omitempty"`
	Task string `json:"task,omitempty"`

	// Result
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Timing
	StartedAt  time.Time `json:"-"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`

	RequestID string `json:"request_id,omitempty"`
}

// Complete finalizes the event with timing and outcome.
func (e *Event) Complete(err error) {
	e.CreatedAt = time.Now().UTC()
	if !e.StartedAt.IsZero() {
		e.DurationMs = e.CreatedAt.Sub(e.StartedAt).Milliseconds()
	}
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
}
