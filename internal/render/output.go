package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/joss/taskd/internal/agent"
	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/tool"
)

// Renderer formats domain values for the terminal.
// Pretty output adds colour and rules; plain output is line oriented.
type Renderer struct {
	*Writer
	pretty bool
}

// New creates a renderer writing to w.
func New(w io.Writer, pretty bool) *Renderer {
	return &Renderer{Writer: NewWriter(w), pretty: pretty}
}

// ForTerminal creates a renderer that is pretty only when w is a TTY.
func ForTerminal(w io.Writer) *Renderer {
	return New(w, IsTerminal(w))
}

func (r *Renderer) rule() {
	if r.pretty {
		r.Println("%s", strings.Repeat("─", 60))
	}
}

func (r *Renderer) title(s string) string {
	if r.pretty {
		return color.CyanString(s)
	}
	return s
}

func (r *Renderer) dim(s string) string {
	if r.pretty {
		return color.HiBlackString(s)
	}
	return s
}

// Tools lists tool definitions with their parameters.
func (r *Renderer) Tools(defs []tool.Definition) {
	if len(defs) == 0 {
		r.Empty("No tools found")
		return
	}

	r.Println("%s", r.title(fmt.Sprintf("TOOLS (%d)", len(defs))))
	r.rule()
	for _, d := range defs {
		r.Println("%s  %s", d.Name, r.dim(d.Description))

		names := make([]string, 0, len(d.Parameters))
		for name := range d.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := d.Parameters[name]
			req := ""
			if p.Required {
				req = " (required)"
			}
			r.SubItem("%s: %s%s  %s", name, p.Type, req, r.dim(p.Description))
		}
	}
}

// ToolResult prints a direct invocation result as indented JSON.
func (r *Renderer) ToolResult(name string, result any) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if r.pretty {
		r.Println("%s %s", color.GreenString(StatusIcon(true)), name)
	}
	r.Println("%s", raw)
	return nil
}

// AgentResponse prints the trace of an agent run.
func (r *Renderer) AgentResponse(resp *agent.Response) {
	r.Println("%s", r.title("TASK: "+resp.Task))
	r.rule()

	for _, step := range resp.Steps {
		r.Println("Step %d: %s", step.StepNumber, step.Thought)
		if step.Action != nil {
			input, _ := json.Marshal(step.Action.Input)
			r.Item("action: %s %s", step.Action.Tool, input)
		}
		if step.Observation != nil {
			obs := *step.Observation
			if r.pretty && strings.HasPrefix(obs, "Error: ") {
				obs = color.RedString(obs)
			}
			r.Item("observation: %s", obs)
		}
	}

	r.Line()
	r.Println("%s", resp.Result)
	r.Println("%s", r.dim(fmt.Sprintf("run %s · %d step(s) · %dms", resp.ID, resp.TotalSteps, resp.DurationMs)))
}

// AuditEvents prints audit events newest first.
func (r *Renderer) AuditEvents(events []audit.Event) {
	if len(events) == 0 {
		r.Empty("No audit events found")
		return
	}

	r.Header("AUDIT LOG (%d events)", len(events))
	for _, e := range events {
		icon := StatusIcon(e.Success)
		if r.pretty {
			if e.Success {
				icon = color.GreenString(icon)
			} else {
				icon = color.RedString(icon)
			}
		}

		subject := e.Tool
		if e.Kind == audit.KindAgentRun {
			subject = fmt.Sprintf("%q", Truncate(e.Task, 50))
			if e.Tool != "" {
				subject += " → " + e.Tool
			}
		}
		r.Println("%s %s %-9s %s (%dms)",
			icon,
			r.dim(e.CreatedAt.Format("2006-01-02 15:04:05")),
			e.Kind,
			subject,
			e.DurationMs,
		)
		if e.Error != "" {
			r.Nested("%s", Truncate(e.Error, 70))
		}
	}
}
