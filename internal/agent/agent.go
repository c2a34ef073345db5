// Package agent matches a free-text task to a registered tool and runs it.
//
// Matching is a case-insensitive substring search over tool names in
// registration order; the first hit wins. A task that names no tool gets a
// guidance answer listing what is available. Tool failures are reported in
// the response text and never fail the run.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/metrics"
	"github.com/joss/taskd/internal/tool"
)

// Registry is the read side of the tool registry the agent needs.
type Registry interface {
	List() []tool.Tool
	Get(name string) (tool.Tool, bool)
}

// Agent dispatches tasks to tools
type Agent struct {
	config  Config
	tools   Registry
	logger  *logging.Logger
	metrics *metrics.Metrics
	audit   *audit.Logger
}

// New creates an Agent over a tool registry.
func New(config Config, tools Registry) *Agent {
	return &Agent{
		config: config,
		tools:  tools,
		logger: logging.Nop(),
	}
}

// WithLogger sets the component logger
func (a *Agent) WithLogger(l *logging.Logger) *Agent {
	if l != nil {
		a.logger = l
	}
	return a
}

// WithMetrics enables run counters
func (a *Agent) WithMetrics(m *metrics.Metrics) *Agent {
	a.metrics = m
	return a
}

// WithAudit records one audit event per run
func (a *Agent) WithAudit(l *audit.Logger) *Agent {
	a.audit = l
	return a
}

// Config returns the limits the agent was built with.
func (a *Agent) Config() Config {
	return a.config
}

// Run dispatches req.Task. The only error is a missing registry.
func (a *Agent) Run(ctx context.Context, req Request) (*Response, error) {
	if a.tools == nil {
		return nil, errorsx.Newf(errorsx.ReasonInternal, "agent: no tool registry configured")
	}

	start := time.Now()
	var event *audit.Event
	if a.audit != nil {
		event = a.audit.Start(audit.KindAgentRun)
		event.Task = req.Task
	}

	tools := a.tools.List()
	var (
		step    Step
		result  string
		outcome = metrics.OutcomeGuidance
		toolErr error
	)

	if t := firstMentioned(tools, req.Task); t != nil {
		name := t.Info().Name
		input := tool.Input{"text": req.Task}
		step = Step{
			StepNumber: 1,
			Thought:    fmt.Sprintf(`Task mentions "%s" tool. Will execute it.`, name),
			Action:     &Action{Tool: name, Input: input},
		}

		observation, err := a.invoke(ctx, t, input)
		if err != nil {
			toolErr = err
			outcome = metrics.OutcomeToolFailed
			result = observation
		} else {
			outcome = metrics.OutcomeToolOK
			result = fmt.Sprintf(`Tool "%s" returned: %s`, name, observation)
		}
		step.Observation = &observation

		if event != nil {
			event.Tool = name
		}
	} else {
		observation := "Available tools: " + strings.Join(toolNames(tools), ", ")
		step = Step{
			StepNumber:  1,
			Thought:     "No specific tool mentioned. Providing guidance.",
			Observation: &observation,
		}
		result = "I can help with tasks using these tools: " + strings.Join(toolSummaries(tools), ", ")
	}

	resp := &Response{
		ID:         ulid.Make().String(),
		Success:    true,
		Task:       req.Task,
		Result:     result,
		Steps:      []Step{step},
		TotalSteps: 1,
		DurationMs: time.Since(start).Milliseconds(),
	}

	a.record(ctx, resp, step, outcome, event, toolErr)
	return resp, nil
}

// invoke runs t and renders the outcome as observation text.
// A returned error means the observation is an "Error: ..." line.
func (a *Agent) invoke(ctx context.Context, t tool.Tool, input tool.Input) (string, error) {
	var out any
	rh := logging.NewRecoveryHandler("tool "+t.Info().Name, a.logger)
	err := rh.WrapError(func() error {
		var execErr error
		out, execErr = t.Execute(ctx, input)
		return execErr
	})
	if err == nil {
		raw, mErr := encodeObservation(out)
		if mErr == nil {
			return raw, nil
		}
		err = fmt.Errorf("encode result: %w", mErr)
	}

	msg := err.Error()
	if msg == "" {
		msg = "Unknown"
	}
	return "Error: " + msg, err
}

func (a *Agent) record(ctx context.Context, resp *Response, step Step, outcome metrics.AgentOutcome, event *audit.Event, toolErr error) {
	extra := map[string]any{
		"run_id":      resp.ID,
		"duration_ms": resp.DurationMs,
		"max_steps":   a.config.MaxSteps,
		"timeout_ms":  a.config.Timeout.Milliseconds(),
	}
	if step.Action != nil {
		extra["tool"] = step.Action.Tool
	}

	log := a.logger.WithContext(ctx)
	if toolErr != nil {
		log.Warn("agent_tool_failed", extra, toolErr)
	} else {
		log.Info("agent_run", extra)
	}

	if a.metrics != nil {
		a.metrics.RecordAgentRun(outcome, resp.DurationMs)
	}
	if event != nil {
		event.Complete(toolErr)
		a.audit.Log(ctx, event)
	}
}

// encodeObservation renders a tool result as compact JSON without HTML escaping.
func encodeObservation(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// firstMentioned returns the first tool whose name occurs in task,
// ignoring case.
func firstMentioned(tools []tool.Tool, task string) tool.Tool {
	lower := strings.ToLower(task)
	for _, t := range tools {
		if strings.Contains(lower, strings.ToLower(t.Info().Name)) {
			return t
		}
	}
	return nil
}

func toolNames(tools []tool.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Info().Name)
	}
	return names
}

func toolSummaries(tools []tool.Tool) []string {
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		def := t.Info()
		out = append(out, fmt.Sprintf("%s (%s)", def.Name, def.Description))
	}
	return out
}
