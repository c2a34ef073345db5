package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/joss/taskd/internal/agent"
	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/config"
	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/metrics"
	"github.com/joss/taskd/internal/render"
	"github.com/joss/taskd/internal/tool"
)

type rootOptions struct {
	configPath string
	noColor    bool
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	registry *tool.Registry
	metrics  *metrics.Metrics
	audit    *audit.Logger
	agent    *agent.Agent
}

// newApp loads config and builds the service graph. Commands other than
// serve log only warnings unless debug logging is asked for.
func newApp(opts *rootOptions, logOut io.Writer, serving bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if !serving && level == logging.LevelInfo {
		level = logging.LevelWarn
	}
	log := logging.New(logOut, level)

	var st audit.Store
	if cfg.AuditDB != "" {
		sqlite, err := audit.OpenSQLite(cfg.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		st = sqlite
	} else {
		st = audit.NewMemoryStore(audit.DefaultMemoryCapacity)
	}

	registry := tool.DefaultRegistry()
	m := metrics.New()
	auditLog := audit.NewLogger(st, audit.WithLog(log.Component("audit")))

	agentCfg := agent.Config{MaxSteps: cfg.MaxAgentSteps, Timeout: cfg.AgentTimeout()}
	a := agent.New(agentCfg, registry).
		WithLogger(log.Component("agent")).
		WithMetrics(m).
		WithAudit(auditLog)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		audit:    auditLog,
		agent:    a,
	}, nil
}

func (a *app) Close() error {
	return a.audit.Store().Close()
}

func (o *rootOptions) renderer(w io.Writer) *render.Renderer {
	if o.noColor {
		color.NoColor = true
		return render.New(w, false)
	}
	return render.ForTerminal(w)
}
