package main

import (
	"bytes"
	"context"
	"io"

	"github.com/dimiro1/banner"
	"github.com/spf13/cobra"

	"github.com/joss/taskd/internal/config"
	"github.com/joss/taskd/internal/render"
	"github.com/joss/taskd/internal/runtime"
	"github.com/joss/taskd/internal/server"
)

func printBanner(w io.Writer) {
	tpl := "{{ .Title \"taskd\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(w, true, render.IsTerminal(w), bytes.NewBufferString(tpl))
}

// showBanner reports whether serve prints the banner. Production logs
// stay machine-readable.
func showBanner(cfg config.Config, noBanner bool) bool {
	return !noBanner && !cfg.IsProduction()
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API and block until SIGINT or SIGTERM.

Routes:
  GET  /health            service status
  GET  /tools             registered tools (?filter=<glob>)
  POST /tool/{toolName}   invoke a tool directly
  POST /agent/run         dispatch a task
  GET  /agent/ws          dispatch tasks over a websocket
  GET  /audit             recent audit events (?limit=&kind=&tool=)
  GET  /metrics           Prometheus metrics

The banner is not printed when environment is production.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}

			if showBanner(app.cfg, noBanner) {
				printBanner(cmd.OutOrStdout())
			}

			return serve(app)
		},
	}

	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "Do not print the startup banner")
	return cmd
}

func serve(app *app) error {
	log := app.log.Component("serve")
	mgr := runtime.NewShutdownManager(app.cfg.ShutdownTimeout(), app.log.Component("runtime"))
	stopSignals := mgr.ListenForSignals()
	defer stopSignals()

	srv := server.New(server.Options{
		Addr:            app.cfg.Addr(),
		Version:         version,
		Registry:        app.registry,
		Agent:           app.agent,
		Audit:           app.audit,
		Metrics:         app.metrics,
		Logger:          app.log,
		ShutdownTimeout: app.cfg.ShutdownTimeout(),
	})

	served := make(chan error, 1)
	serveDone := make(chan struct{})

	// Shutdown runs handlers last-registered first: drain HTTP, then close the store.
	mgr.Register("audit_store", func(ctx context.Context) error {
		return app.Close()
	})
	mgr.Register("http_server", func(ctx context.Context) error {
		select {
		case <-serveDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	log.Info("starting", map[string]any{
		"addr":        app.cfg.Addr(),
		"environment": app.cfg.Environment,
		"version":     version,
		"max_steps":   app.cfg.MaxAgentSteps,
		"timeout_ms":  app.cfg.AgentTimeoutMs,
		"audit_db":    app.cfg.AuditDB,
	})

	go func() {
		err := srv.Serve(mgr.Context())
		served <- err
		close(serveDone)
		mgr.Shutdown()
	}()

	mgr.WaitForShutdown()

	select {
	case err := <-served:
		if err != nil {
			return err
		}
	default:
	}
	return mgr.Err()
}
