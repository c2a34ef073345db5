package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joss/taskd/internal/agent"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/tool"
)

type toolList struct {
	Tools []tool.Definition `json:"tools" yaml:"tools"`
}

func toolsCmd(opts *rootOptions) *cobra.Command {
	var filter, format string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		Long: `List registered tools and their parameters.

Examples:
  taskd tools                      # Human readable list
  taskd tools --filter 'calc*'     # Glob over tool names
  taskd tools --format yaml        # Machine readable output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			tools, err := app.registry.Match(filter)
			if err != nil {
				return err
			}
			defs := make([]tool.Definition, 0, len(tools))
			for _, t := range tools {
				defs = append(defs, t.Info())
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				opts.renderer(out).Tools(defs)
				return nil
			case "json":
				return writeJSON(out, toolList{Tools: defs})
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(toolList{Tools: defs}); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Glob pattern over tool names")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, yaml")
	return cmd
}

func callCmd(opts *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool directly",
		Long: `Invoke a tool with a JSON input object, bypassing the dispatcher.
Tool failures are reported as errors.

Examples:
  taskd call echo --input '{"text":"hello"}'
  taskd call calculator --input '{"operation":"divide","a":10,"b":4}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in tool.Input
			if err := json.Unmarshal([]byte(input), &in); err != nil || in == nil {
				return errorsx.Newf(errorsx.ReasonValidation, "--input must be a JSON object")
			}

			app, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			name := args[0]
			result, err := app.agent.Invoke(cmd.Context(), name, in)
			if err != nil {
				return err
			}

			return opts.renderer(cmd.OutOrStdout()).ToolResult(name, result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "{}", "Tool input as a JSON object")
	return cmd
}

func runCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <task...>",
		Short: "Dispatch a task to the matching tool",
		Long: `Dispatch a free-text task. The first tool whose name appears in the
task (ignoring case) is run with {"text": <task>}. Without a match the
available tools are listed.

Examples:
  taskd run please echo this back
  taskd run what can you do`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")

			app, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.agent.Run(cmd.Context(), agent.Request{Task: task, Context: map[string]any{}})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			opts.renderer(cmd.OutOrStdout()).AgentResponse(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
