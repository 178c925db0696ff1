package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/workflow"
)

// RunRequest is the body of POST /v1/workflows/{id}/run.
type RunRequest struct {
	Input          json.RawMessage `json:"input"`
	ConversationID string          `json:"conversationId,omitempty"`
	RunID          string          `json:"runId,omitempty"`
}

// WorkflowInfo describes a registered workflow.
type WorkflowInfo struct {
	ID           string         `json:"id"`
	Description  string         `json:"description,omitempty"`
	Steps        []string       `json:"steps"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema"`
}

// AgentInfo describes a registered agent.
type AgentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Model       string   `json:"model"`
	Tools       []string `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]any{"status": "ok"}})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	wfs := s.engine.Workflows()
	out := make([]WorkflowInfo, 0, len(wfs))
	for _, wf := range wfs {
		out = append(out, WorkflowInfo{
			ID:           wf.ID(),
			Description:  wf.Description(),
			Steps:        wf.StepIDs(),
			InputSchema:  wf.InputSchema(),
			OutputSchema: wf.OutputSchema(),
		})
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := s.engine.Agents()
	out := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		out = append(out, AgentInfo{
			Name:        a.Name(),
			Description: a.Description(),
			Model:       a.Model().Info().Name,
			Tools:       a.ToolNames(),
		})
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Input) == 0 || strings.TrimSpace(string(req.Input)) == "null" {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	ctx := r.Context()
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	res, err := s.engine.Run(ctx, id, req.Input, func(o *engine.RunOptions) {
		o.ConversationID = req.ConversationID
		o.RunID = req.RunID
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("server.run.error", "workflow", id, "status", status, "error", err.Error())
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]
	if !s.engine.Cancel(runID) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Data: map[string]any{"runId": runID, "status": "canceling"}})
}

// statusFor maps run errors to HTTP statuses. Lookup and input errors only
// count as client errors when they concern the request itself, not a step.
func statusFor(err error) int {
	var se *workflow.StepError
	inStep := errors.As(err, &se)

	switch {
	case !inStep && errors.Is(err, core.ErrNotRegistered):
		return http.StatusNotFound
	case !inStep && errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrMalformedReply),
		errors.Is(err, core.ErrUnmatchedBranch),
		errors.Is(err, core.ErrInvocation):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
