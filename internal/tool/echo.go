package tool

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TimestampFormat is RFC 3339 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// EchoResult is returned by the echo tool.
type EchoResult struct {
	Echoed    string `json:"echoed"`
	Timestamp string `json:"timestamp"`
}

// Echo returns its text input with a timestamp.
type Echo struct {
	now func() time.Time
}

func NewEcho() *Echo {
	return &Echo{now: time.Now}
}

func (e *Echo) Info() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echoes the input text back",
		Parameters: map[string]Parameter{
			"text": {Type: "string", Description: "Text to echo", Required: true},
		},
	}
}

func (e *Echo) Execute(ctx context.Context, input Input) (any, error) {
	return EchoResult{
		Echoed:    echoText(input["text"]),
		Timestamp: e.now().UTC().Format(TimestampFormat),
	}, nil
}

// echoText renders falsy values as "" and stringifies other scalars.
func echoText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		if x == 0 || math.IsNaN(x) {
			return ""
		}
		return fmt.Sprint(x)
	case int:
		if x == 0 {
			return ""
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}
