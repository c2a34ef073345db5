// Package main provides the taskd CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "taskd",
		Short: "Tool registry and task dispatcher service",
		Long: `taskd: a minimal task-execution service.

It exposes named tools over HTTP and a dispatcher that matches a
free-text task to a tool by name and runs it.

Use 'taskd serve' to start the HTTP API.
Use 'taskd run <task>' to dispatch a task locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "service", Title: "Service:"},
		&cobra.Group{ID: "tools", Title: "Tools:"},
	)

	serve := serveCmd(&opts)
	serve.GroupID = "service"
	rootCmd.AddCommand(serve)

	auditC := auditCmd(&opts)
	auditC.GroupID = "service"
	rootCmd.AddCommand(auditC)

	tools := toolsCmd(&opts)
	tools.GroupID = "tools"
	rootCmd.AddCommand(tools)

	call := callCmd(&opts)
	call.GroupID = "tools"
	rootCmd.AddCommand(call)

	run := runCmd(&opts)
	run.GroupID = "tools"
	rootCmd.AddCommand(run)

	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskd %s\n", version)
		},
	}
}
