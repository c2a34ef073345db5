package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/joss/taskd/internal/agent"
	"github.com/joss/taskd/internal/audit"
	"github.com/joss/taskd/internal/errorsx"
	"github.com/joss/taskd/internal/store"
	"github.com/joss/taskd/internal/tool"
)

const defaultAuditLimit = 50

type toolsResponse struct {
	Tools []tool.Definition `json:"tools"`
}

type toolRequest struct {
	Tool  *string    `json:"tool"`
	Input tool.Input `json:"input"`
}

type toolResponse struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

type agentRequest struct {
	Task    *string        `json:"task"`
	Context map[string]any `json:"context"`
}

type auditResponse struct {
	Events []audit.Event `json:"events"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("filter")
	if pattern == "" {
		writeJSON(w, http.StatusOK, toolsResponse{Tools: s.opts.Registry.Definitions()})
		return
	}

	tools, err := s.opts.Registry.Match(pattern)
	if err != nil {
		writeErr(w, errorsx.Wrap(err, errorsx.ReasonValidation))
		return
	}

	defs := make([]tool.Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Info())
	}
	writeJSON(w, http.StatusOK, toolsResponse{Tools: defs})
}

func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("toolName")

	var req toolRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, err)
		return
	}

	result, err := s.invokeTool(r.Context(), name, req.Input)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toolResponse{Tool: name, Result: result})
}

func (req toolRequest) validate() error {
	if req.Tool == nil {
		return errorsx.Newf(errorsx.ReasonValidation, "tool: required string")
	}
	if req.Input == nil {
		return errorsx.Newf(errorsx.ReasonValidation, "input: required object")
	}
	return nil
}

// invokeTool runs a tool directly. Unlike the agent run, failures are returned.
func (s *Server) invokeTool(ctx context.Context, name string, input tool.Input) (any, error) {
	if s.opts.Agent == nil {
		return nil, errorsx.Newf(errorsx.ReasonInternal, "Tool execution failed")
	}
	return s.opts.Agent.Invoke(ctx, name, input)
}

func (s *Server) handleAgentRun(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}

	resp, err := s.runAgent(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req agentRequest) validate() error {
	if req.Task == nil {
		return errorsx.Newf(errorsx.ReasonValidation, "task: required string")
	}
	if *req.Task == "" {
		return errorsx.Newf(errorsx.ReasonValidation, "task: must contain at least 1 character")
	}
	return nil
}

// runAgent validates req and dispatches it. Shared by HTTP and WebSocket.
func (s *Server) runAgent(ctx context.Context, req agentRequest) (*agent.Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}
	if s.opts.Agent == nil {
		return nil, errorsx.Newf(errorsx.ReasonInternal, "Agent execution failed")
	}

	resp, err := s.opts.Agent.Run(ctx, agent.Request{Task: *req.Task, Context: req.Context})
	if err != nil {
		s.log.WithContext(ctx).Error("agent_run_failed", nil, err)
		return nil, errorsx.Wrap(err, errorsx.ReasonInternal)
	}
	return resp, nil
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DefaultFilter().WithLimit(defaultAuditLimit)

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErr(w, errorsx.Newf(errorsx.ReasonValidation, "limit: must be a positive integer"))
			return
		}
		filter = filter.WithLimit(n)
	}
	if kind := strings.TrimSpace(q.Get("kind")); kind != "" {
		if !audit.Kind(kind).Valid() {
			writeErr(w, errorsx.Newf(errorsx.ReasonValidation, "kind: must be %s or %s", audit.KindToolCall, audit.KindAgentRun))
			return
		}
		filter = filter.WithWhere(audit.FieldKind, kind)
	}
	if name := strings.TrimSpace(q.Get("tool")); name != "" {
		filter = filter.WithWhere(audit.FieldTool, name)
	}

	events, err := s.audit.Recent(r.Context(), filter)
	if err != nil {
		writeErr(w, errorsx.Wrap(err, errorsx.ReasonInternal))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Events: events})
}
