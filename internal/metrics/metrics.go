// Package metrics provides a simple Prometheus-compatible metrics endpoint.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics holds runtime counters for taskd
type Metrics struct {
	// Agent runs
	AgentRuns         atomic.Int64
	AgentToolMatches  atomic.Int64
	AgentGuidance     atomic.Int64
	AgentToolFailures atomic.Int64

	// Direct tool invocations
	ToolCalls        atomic.Int64
	ToolCallErrors   atomic.Int64
	ToolCallNotFound atomic.Int64

	// Transport
	HTTPRequests  atomic.Int64
	HealthChecks  atomic.Int64
	WSConnections atomic.Int64
	WSActive      atomic.Int64

	// Timing (last operation duration in ms)
	LastAgentDurationMs atomic.Int64
	LastToolDurationMs  atomic.Int64

	startTime time.Time
}

// New returns a zeroed metrics set whose uptime starts now.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// AgentOutcome classifies a finished agent run.
type AgentOutcome int

const (
	OutcomeGuidance AgentOutcome = iota
	OutcomeToolOK
	OutcomeToolFailed
)

// RecordAgentRun records one dispatcher run
func (m *Metrics) RecordAgentRun(outcome AgentOutcome, durationMs int64) {
	m.AgentRuns.Add(1)
	switch outcome {
	case OutcomeGuidance:
		m.AgentGuidance.Add(1)
	case OutcomeToolOK:
		m.AgentToolMatches.Add(1)
	case OutcomeToolFailed:
		m.AgentToolMatches.Add(1)
		m.AgentToolFailures.Add(1)
	}
	m.LastAgentDurationMs.Store(durationMs)
}

// RecordToolCall records a direct tool invocation
func (m *Metrics) RecordToolCall(success bool, durationMs int64) {
	m.ToolCalls.Add(1)
	if !success {
		m.ToolCallErrors.Add(1)
	}
	m.LastToolDurationMs.Store(durationMs)
}

// RecordToolNotFound records an invocation of an unregistered tool
func (m *Metrics) RecordToolNotFound() {
	m.ToolCallNotFound.Add(1)
}

func (m *Metrics) RecordRequest() {
	m.HTTPRequests.Add(1)
}

func (m *Metrics) RecordHealthCheck() {
	m.HealthChecks.Add(1)
}

// WSOpened and WSClosed track websocket sessions.
func (m *Metrics) WSOpened() {
	m.WSConnections.Add(1)
	m.WSActive.Add(1)
}

func (m *Metrics) WSClosed() {
	m.WSActive.Add(-1)
}

type series struct {
	name  string
	kind  string
	help  string
	value *atomic.Int64
}

func (m *Metrics) series() []series {
	return []series{
		{"taskd_agent_runs_total", "counter", "Total agent runs", &m.AgentRuns},
		{"taskd_agent_tool_matches_total", "counter", "Agent runs that matched a tool", &m.AgentToolMatches},
		{"taskd_agent_guidance_total", "counter", "Agent runs that fell back to guidance", &m.AgentGuidance},
		{"taskd_agent_tool_failures_total", "counter", "Tool failures absorbed by the agent", &m.AgentToolFailures},
		{"taskd_tool_calls_total", "counter", "Total direct tool invocations", &m.ToolCalls},
		{"taskd_tool_call_errors_total", "counter", "Direct tool invocations that failed", &m.ToolCallErrors},
		{"taskd_tool_call_not_found_total", "counter", "Direct invocations of unknown tools", &m.ToolCallNotFound},
		{"taskd_http_requests_total", "counter", "Total HTTP requests served", &m.HTTPRequests},
		{"taskd_health_checks_total", "counter", "Total health checks performed", &m.HealthChecks},
		{"taskd_ws_connections_total", "counter", "Total websocket connections accepted", &m.WSConnections},
		{"taskd_ws_active", "gauge", "Open websocket connections", &m.WSActive},
		{"taskd_last_agent_duration_ms", "gauge", "Last agent run duration", &m.LastAgentDurationMs},
		{"taskd_last_tool_duration_ms", "gauge", "Last direct tool invocation duration", &m.LastToolDurationMs},
	}
}

// WriteText writes all metrics in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) {
	fmt.Fprintf(w, "# HELP taskd_uptime_seconds Time since taskd started\n")
	fmt.Fprintf(w, "# TYPE taskd_uptime_seconds gauge\n")
	fmt.Fprintf(w, "taskd_uptime_seconds %.2f\n", time.Since(m.startTime).Seconds())

	for _, s := range m.series() {
		fmt.Fprintf(w, "\n# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", s.name, s.kind)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value.Load())
	}
}

// Handler returns an HTTP handler for /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.WriteText(w)
	}
}
