// Package server exposes the tool registry and the agent over HTTP and
// WebSocket.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joss/taskd/internal/agent"
	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/health/handler"
	"github.com/joss/taskd/internal/health/usecase"
	"github.com/joss/taskd/internal/logging"
	"github.com/joss/taskd/internal/metrics"
	"github.com/joss/taskd/internal/tool"
)

// maxBodyBytes caps request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// Options wires the server's dependencies. Registry and Agent are required.
type Options struct {
	Addr            string
	Version         string
	Registry        *tool.Registry
	Agent           *agent.Agent
	Audit           *audit.Logger
	Metrics         *metrics.Metrics
	Logger          *logging.Logger
	ShutdownTimeout time.Duration
}

// Server provides the taskd HTTP API
type Server struct {
	opts     Options
	mux      *http.ServeMux
	log      *logging.Logger
	metrics  *metrics.Metrics
	audit    *audit.Logger
	health   *handler.HealthHandler
	upgrader websocket.Upgrader
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewLogger(nil)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		opts:    opts,
		mux:     http.NewServeMux(),
		log:     opts.Logger.Component("server"),
		metrics: opts.Metrics,
		audit:   opts.Audit,
		health:  handler.NewHealthHandler(usecase.NewHealthUseCase(opts.Version, opts.Registry), opts.Metrics),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.health.HandleHealth)
	s.mux.HandleFunc("GET /tools", s.handleListTools)
	s.mux.HandleFunc("POST /tool/{toolName}", s.handleInvokeTool)
	s.mux.HandleFunc("POST /agent/run", s.handleAgentRun)
	s.mux.HandleFunc("GET /agent/ws", s.handleAgentWS)
	s.mux.HandleFunc("GET /audit", s.handleAudit)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("/", s.handleNotFound)
}

// Middleware for CORS
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+logging.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", logging.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Middleware for JSON content type
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// RequestID propagates or assigns X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), r.Header.Get(logging.RequestIDHeader))
		w.Header().Set(logging.RequestIDHeader, logging.GetRequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer turns handler panics into 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rh := logging.NewRecoveryHandler("http", s.log.WithContext(r.Context()))
		err := rh.WrapError(func() error {
			next.ServeHTTP(w, r)
			return nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
		}
	})
}

// accessLog counts and logs every request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.metrics.RecordRequest()
		s.log.WithContext(r.Context()).TimedEvent("http_request", start, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.status,
		})
	})
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return RequestID(s.accessLog(CORS(JSON(s.recoverer(s.mux)))))
}

// Serve starts the server and shuts it down gracefully when ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown_incomplete", nil, err)
		}
	}()

	s.log.Info("listening", map[string]any{
		"addr":  ln.Addr().String(),
		"tools": s.opts.Registry.Names(),
	})
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
