package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/metrics"
	"github.com/joss/taskd/internal/store"
	"github.com/joss/taskd/internal/tool"
)

func testAgent() *Agent {
	return New(Config{MaxSteps: 10, Timeout: 5 * time.Second}, tool.DefaultRegistry())
}

func fixedTool(name, desc string, fn func(context.Context, tool.Input) (any, error)) tool.Func {
	return tool.Func{Def: tool.Definition{Name: name, Description: desc}, Fn: fn}
}

func TestAgentRunEchoMatch(t *testing.T) {
	resp, err := testAgent().Run(context.Background(), Request{Task: "Please use echo to repeat this", Context: map[string]any{}})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Please use echo to repeat this", resp.Task)
	assert.Len(t, resp.ID, 26)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, 1, resp.TotalSteps)
	assert.GreaterOrEqual(t, resp.DurationMs, int64(0))

	step := resp.Steps[0]
	assert.Equal(t, 1, step.StepNumber)
	assert.Equal(t, `Task mentions "echo" tool. Will execute it.`, step.Thought)
	require.NotNil(t, step.Action)
	assert.Equal(t, "echo", step.Action.Tool)
	assert.Equal(t, tool.Input{"text": "Please use echo to repeat this"}, step.Action.Input)

	require.NotNil(t, step.Observation)
	var echoed tool.EchoResult
	require.NoError(t, json.Unmarshal([]byte(*step.Observation), &echoed))
	assert.Equal(t, "Please use echo to repeat this", echoed.Echoed)
	assert.Equal(t, `Tool "echo" returned: `+*step.Observation, resp.Result)
}

func TestAgentRunCaseInsensitive(t *testing.T) {
	resp, err := testAgent().Run(context.Background(), Request{Task: "ECHO hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.Steps[0].Action)
	assert.Equal(t, "echo", resp.Steps[0].Action.Tool)
	assert.Contains(t, *resp.Steps[0].Observation, `"echoed":"ECHO hello"`)
}

func TestAgentRunGuidance(t *testing.T) {
	resp, err := testAgent().Run(context.Background(), Request{Task: "What can you do?"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Steps, 1)
	step := resp.Steps[0]
	assert.Equal(t, "No specific tool mentioned. Providing guidance.", step.Thought)
	assert.Nil(t, step.Action)
	require.NotNil(t, step.Observation)
	assert.Equal(t, "Available tools: echo, calculator", *step.Observation)
	assert.Equal(t,
		"I can help with tasks using these tools: echo (Echoes the input text back), calculator (Performs basic arithmetic operations)",
		resp.Result)
}

func TestAgentRunCalculatorFailureIsAbsorbed(t *testing.T) {
	// The agent only passes {text}, so the calculator always rejects its operands.
	resp, err := testAgent().Run(context.Background(), Request{Task: "use the calculator to add 2 and 3"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	step := resp.Steps[0]
	require.NotNil(t, step.Action)
	assert.Equal(t, "calculator", step.Action.Tool)
	assert.Equal(t, "Error: invalid operands: a and b must be numbers", *step.Observation)
	assert.Equal(t, *step.Observation, resp.Result)
}

func TestAgentRunFirstMatchWins(t *testing.T) {
	r := tool.NewRegistry()
	r.Register(fixedTool("calc", "short", func(context.Context, tool.Input) (any, error) { return "short", nil }))
	r.Register(fixedTool("calculator", "long", func(context.Context, tool.Input) (any, error) { return "long", nil }))

	resp, err := New(DefaultConfig(), r).Run(context.Background(), Request{Task: "use calculator"})
	require.NoError(t, err)
	assert.Equal(t, "calc", resp.Steps[0].Action.Tool)
	assert.Equal(t, `Tool "calc" returned: "short"`, resp.Result)
}

func TestAgentRunToolErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, tool.Input) (any, error)
		want string
	}{
		{
			name: "error",
			fn:   func(context.Context, tool.Input) (any, error) { return nil, errors.New("boom") },
			want: "Error: boom",
		},
		{
			name: "empty message",
			fn:   func(context.Context, tool.Input) (any, error) { return nil, errors.New("") },
			want: "Error: Unknown",
		},
		{
			name: "panic",
			fn:   func(context.Context, tool.Input) (any, error) { panic("kaboom") },
			want: "Error: panic in tool flaky: kaboom",
		},
		{
			name: "unencodable result",
			fn:   func(context.Context, tool.Input) (any, error) { return make(chan int), nil },
			want: "Error: encode result: json: unsupported type: chan int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tool.NewRegistry()
			r.Register(fixedTool("flaky", "fails", tt.fn))

			resp, err := New(DefaultConfig(), r).Run(context.Background(), Request{Task: "run flaky"})
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.want, *resp.Steps[0].Observation)
			assert.Equal(t, tt.want, resp.Result)
		})
	}
}

func TestAgentRunEmptyRegistry(t *testing.T) {
	resp, err := New(DefaultConfig(), tool.NewRegistry()).Run(context.Background(), Request{Task: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "Available tools: ", *resp.Steps[0].Observation)
	assert.Equal(t, "I can help with tasks using these tools: ", resp.Result)
}

func TestAgentRunNoRegistry(t *testing.T) {
	_, err := New(DefaultConfig(), nil).Run(context.Background(), Request{Task: "echo"})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonInternal))
}

func TestAgentRunIDsAreUnique(t *testing.T) {
	a := testAgent()
	first, err := a.Run(context.Background(), Request{Task: "hi"})
	require.NoError(t, err)
	second, err := a.Run(context.Background(), Request{Task: "hi"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAgentRecordsMetricsAndAudit(t *testing.T) {
	m := metrics.New()
	events := audit.NewMemoryStore(10)
	a := testAgent().WithMetrics(m).WithAudit(audit.NewLogger(events))

	_, err := a.Run(context.Background(), Request{Task: "echo this"})
	require.NoError(t, err)
	_, err = a.Run(context.Background(), Request{Task: "calculator please"})
	require.NoError(t, err)
	_, err = a.Run(context.Background(), Request{Task: "help"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.AgentRuns.Load())
	assert.Equal(t, int64(2), m.AgentToolMatches.Load())
	assert.Equal(t, int64(1), m.AgentToolFailures.Load())
	assert.Equal(t, int64(1), m.AgentGuidance.Load())

	recent, err := events.Recent(context.Background(), store.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, audit.KindAgentRun, recent[0].Kind)
	assert.Equal(t, "help", recent[0].Task)
	assert.Empty(t, recent[0].Tool)
	assert.Equal(t, "calculator", recent[1].Tool)
	assert.False(t, recent[1].Success)
	assert.Equal(t, "invalid operands: a and b must be numbers", recent[1].Error)
	assert.True(t, recent[2].Success)
}

func TestResponseJSONShape(t *testing.T) {
	resp, err := testAgent().Run(context.Background(), Request{Task: "nothing here"})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"id", "success", "task", "result", "steps", "totalSteps", "durationMs"} {
		assert.Contains(t, m, key)
	}
	step := m["steps"].([]any)[0].(map[string]any)
	assert.Contains(t, step, "action")
	assert.Nil(t, step["action"])
	assert.Equal(t, float64(1), step["stepNumber"])
}
