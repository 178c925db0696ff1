// Package server exposes registered workflows over HTTP.
//
// Routes:
//
//	POST   /v1/workflows/{id}/run   run a workflow
//	GET    /v1/workflows            list workflows
//	GET    /v1/agents               list agents
//	DELETE /v1/runs/{runId}         cancel an in-flight run
//	GET    /healthz                 liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/workflow"
)

// maxBodyBytes bounds run request bodies.
const maxBodyBytes = 1 << 20

// Engine is the part of engine.Engine the server needs.
type Engine interface {
	Run(ctx context.Context, workflowID string, input any, optFns ...func(o *engine.RunOptions)) (*engine.RunResult, error)
	Agents() []*agent.Agent
	Workflows() []*workflow.Workflow
	Cancel(runID string) bool
}

var _ Engine = (*engine.Engine)(nil)

// Options configures the server.
type Options struct {
	Addr string
	// RunTimeout bounds each run (0 = only the client connection bounds it).
	RunTimeout      time.Duration
	ShutdownTimeout time.Duration
	Logger          logging.Logger
}

// Server serves the workflow API.
type Server struct {
	engine Engine
	opts   Options
	logger logging.Logger
	router *mux.Router
}

// New creates a server for eng.
func New(eng Engine, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		engine: eng,
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger),
		router: mux.NewRouter(),
	}
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.start", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown", "timeout", s.opts.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.logger.Info("server.stopped")

	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/workflows", s.handleListWorkflows).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}/run", s.handleRun).Methods(http.MethodPost)
	api.HandleFunc("/agents", s.handleListAgents).Methods(http.MethodGet)
	api.HandleFunc("/runs/{runId}", s.handleCancel).Methods(http.MethodDelete)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info(
			"server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// APIResponse is the envelope of every response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("server.response.encode_error", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
