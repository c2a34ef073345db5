package agent

import (
	"context"
	"time"

	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/tool"
)

// Invoke runs the named tool directly, without matching. Unlike Run,
// failures are returned: not_found for an unknown tool, tool_execution for
// anything the tool reports, panics included.
func (a *Agent) Invoke(ctx context.Context, name string, input tool.Input) (any, error) {
	if a.tools == nil {
		return nil, errorsx.Newf(errorsx.ReasonInternal, "agent: no tool registry configured")
	}
	log := a.logger.WithContext(ctx)

	t, ok := a.tools.Get(name)
	if !ok {
		if a.metrics != nil {
			a.metrics.RecordToolNotFound()
		}
		return nil, errorsx.Newf(errorsx.ReasonNotFound, "Tool not found: %s", name)
	}
	if input == nil {
		input = tool.Input{}
	}
	if err := tool.CheckInput(t.Info(), input); err != nil {
		log.Warn("tool_input_incomplete", map[string]any{"tool": name}, err)
	}

	var event *audit.Event
	if a.audit != nil {
		event = a.audit.Start(audit.KindToolCall)
		event.Tool = name
	}

	start := time.Now()
	var result any
	rh := logging.NewRecoveryHandler("tool "+name, log)
	err := rh.WrapError(func() error {
		var execErr error
		result, execErr = t.Execute(ctx, input)
		return execErr
	})
	elapsed := time.Since(start).Milliseconds()

	if a.metrics != nil {
		a.metrics.RecordToolCall(err == nil, elapsed)
	}
	if event != nil {
		event.Complete(err)
		a.audit.Log(ctx, event)
	}

	if err != nil {
		log.Warn("tool_call_failed", map[string]any{"tool": name, "duration_ms": elapsed}, err)
		if err.Error() == "" {
			return nil, errorsx.Newf(errorsx.ReasonToolExecution, "Tool execution failed")
		}
		return nil, errorsx.Wrap(err, errorsx.ReasonToolExecution)
	}
	log.Info("tool_call", map[string]any{"tool": name, "duration_ms": elapsed})
	return result, nil
}
