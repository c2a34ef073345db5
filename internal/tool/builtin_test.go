package tool

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoExecute(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 250_000_000, time.FixedZone("X", 3600))
	echo := &Echo{now: func() time.Time { return fixed }}

	tests := []struct {
		name  string
		input Input
		want  string
	}{
		{name: "text", input: Input{"text": "hello"}, want: "hello"},
		{name: "missing", input: Input{}, want: ""},
		{name: "nil", input: Input{"text": nil}, want: ""},
		{name: "false", input: Input{"text": false}, want: ""},
		{name: "zero", input: Input{"text": float64(0)}, want: ""},
		{name: "number", input: Input{"text": float64(42)}, want: "42"},
		{name: "true", input: Input{"text": true}, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := echo.Execute(context.Background(), tt.input)
			require.NoError(t, err)

			res, ok := out.(EchoResult)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Echoed)
			assert.Equal(t, "2024-05-01T11:30:00.250Z", res.Timestamp)
		})
	}
}

func TestEchoJSONShape(t *testing.T) {
	out, err := NewEcho().Execute(context.Background(), Input{"text": "hi"})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"echoed":"hi","timestamp":"\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z"\}$`, string(raw))
}

func TestCalculatorExecute(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name    string
		input   Input
		want    float64
		wantErr string
	}{
		{name: "add", input: Input{"operation": "add", "a": 2, "b": 3}, want: 5},
		{name: "subtract", input: Input{"operation": "subtract", "a": 10, "b": 4}, want: 6},
		{name: "multiply", input: Input{"operation": "multiply", "a": 3, "b": 4}, want: 12},
		{name: "divide", input: Input{"operation": "divide", "a": 10, "b": 2}, want: 5},
		{name: "float operands", input: Input{"operation": "add", "a": 0.5, "b": float64(1.25)}, want: 1.75},
		{name: "string operands", input: Input{"operation": "multiply", "a": "6", "b": "7"}, want: 42},
		{name: "overflowing result", input: Input{"operation": "multiply", "a": 1e308, "b": 10}, want: math.Inf(1)},
		{name: "overflowing string operand", input: Input{"operation": "subtract", "a": "-1e400", "b": 1}, want: math.Inf(-1)},
		{name: "divide by zero", input: Input{"operation": "divide", "a": 10, "b": 0}, wantErr: "division by zero"},
		{name: "non numeric", input: Input{"operation": "add", "a": "x", "b": 1}, wantErr: "invalid operands: a and b must be numbers"},
		{name: "nil operand", input: Input{"operation": "add", "a": nil, "b": 1}, wantErr: "invalid operands: a and b must be numbers"},
		{name: "NaN operand", input: Input{"operation": "add", "a": math.NaN(), "b": 1}, wantErr: "invalid operands: a and b must be numbers"},
		{name: "missing operand", input: Input{"operation": "add", "a": 1}, wantErr: "invalid operands: a and b must be numbers"},
		{name: "unknown operation", input: Input{"operation": "modulo", "a": 1, "b": 2}, wantErr: "unknown operation: modulo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := calc.Execute(context.Background(), tt.input)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			res, ok := out.(CalculatorResult)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Result)
			assert.Equal(t, tt.input["operation"], res.Operation)
		})
	}
}

func TestCalculatorJSONShape(t *testing.T) {
	out, err := NewCalculator().Execute(context.Background(), Input{"operation": "add", "a": 2, "b": 3})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"add","a":2,"b":3,"result":5}`, string(raw))
	assert.Equal(t, `{"operation":"add","a":2,"b":3,"result":5}`, string(raw))
}

func TestCalculatorJSONNonFinite(t *testing.T) {
	out, err := NewCalculator().Execute(context.Background(), Input{"operation": "multiply", "a": "1e400", "b": 2})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"operation":"multiply","a":null,"b":2,"result":null}`, string(raw))
}
