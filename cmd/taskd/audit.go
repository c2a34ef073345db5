package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/store"
)

func auditCmd(opts *rootOptions) *cobra.Command {
	var (
		kind, toolName string
		limit          int
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit events",
		Long: `Display recent tool calls and agent runs from the audit database.

Requires AUDIT_DB (or audit_db in the config file); without it events
are only kept in the memory of a running server, see GET /audit.

Examples:
  taskd audit                      # Last 20 events
  taskd audit --kind agent_run     # Agent runs only
  taskd audit --tool calculator    # Events for one tool`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.cfg.AuditDB == "" {
				return errors.New("no audit database configured: set AUDIT_DB")
			}

			filter := store.DefaultFilter().WithLimit(limit)
			if kind != "" {
				if !audit.Kind(kind).Valid() {
					return errorsx.Newf(errorsx.ReasonValidation, "--kind must be %s or %s", audit.KindToolCall, audit.KindAgentRun)
				}
				filter = filter.WithWhere(audit.FieldKind, kind)
			}
			if toolName != "" {
				filter = filter.WithWhere(audit.FieldTool, toolName)
			}

			events, err := app.audit.Recent(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				if events == nil {
					events = []audit.Event{}
				}
				return writeJSON(cmd.OutOrStdout(), events)
			}
			opts.renderer(cmd.OutOrStdout()).AuditEvents(events)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind: tool_call, agent_run")
	cmd.Flags().StringVar(&toolName, "tool", "", "Filter by tool name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum events to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
