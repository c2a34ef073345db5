package agent

import (
	"time"

	"github.com/joss/taskd/internal/tool"
)

// Config bounds a run. Both limits are recorded but not yet enforced:
// a run always takes exactly one step and waits for the tool to finish.
type Config struct {
	MaxSteps int
	Timeout  time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{MaxSteps: 10, Timeout: 30 * time.Second}
}

// Request is a free-text task. Context is accepted but not consulted.
type Request struct {
	Task    string         `json:"task"`
	Context map[string]any `json:"context,omitempty"`
}

// Action is the tool invocation chosen for a step.
type Action struct {
	Tool  string     `json:"tool"`
	Input tool.Input `json:"input"`
}

// Step records one dispatch decision and its outcome.
type Step struct {
	StepNumber  int     `json:"stepNumber"`
	Thought     string  `json:"thought"`
	Action      *Action `json:"action"`
	Observation *string `json:"observation"`
}

// Response is the trace of a run.
type Response struct {
	ID         string `json:"id"`
	Success    bool   `json:"success"`
	Task       string `json:"task"`
	Result     string `json:"result"`
	Steps      []Step `json:"steps"`
	TotalSteps int    `json:"totalSteps"`
	DurationMs int64  `json:"durationMs"`
}
