package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/workflow"
)

// ErrDuplicate is returned when registering a name twice.
var ErrDuplicate = errors.New("already registered")

// ErrRunActive is returned when a run id is reused while that run is in flight.
var ErrRunActive = errors.New("already active")

// Config defines tuning parameters for the Engine's operational behavior.
type Config struct {
	// MaxConcurrentRuns limits simultaneously executing runs; further runs
	// wait for a slot or their context. Set to 0 for unlimited.
	MaxConcurrentRuns int

	// SerializeConversations runs at most one workflow per conversation id at
	// a time, so runs sharing working memory never interleave.
	SerializeConversations bool
}

// DefaultConfig provides the default configuration values.
//
// Configuration values:
//   - MaxConcurrentRuns: 10
//   - SerializeConversations: false (concurrent runs on one conversation race)
var DefaultConfig = Config{
	MaxConcurrentRuns: 10,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	Config Config

	// Callbacks are invoked around every workflow step of every run.
	Callbacks []workflow.Callback

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Engine is the registry of agents and workflows and the entry point for
// workflow runs.
type Engine struct {
	logger    logging.Logger
	config    Config
	callbacks *workflow.CallbackManager

	mu        sync.RWMutex
	agents    map[string]*agent.Agent
	workflows map[string]*workflow.Workflow

	runsMu     sync.Mutex
	activeRuns map[string]context.CancelFunc

	slots chan struct{}
	convs *keyedMutex
}

var _ workflow.Registry = (*Engine)(nil)

// New creates a new Engine instance with defaults and optional configuration.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		logger:     logging.OrNoOp(opts.Logger),
		config:     opts.Config,
		callbacks:  workflow.NewCallbackManager(opts.Callbacks...),
		agents:     make(map[string]*agent.Agent),
		workflows:  make(map[string]*workflow.Workflow),
		activeRuns: make(map[string]context.CancelFunc),
		convs:      newKeyedMutex(),
	}

	if opts.Config.MaxConcurrentRuns > 0 {
		e.slots = make(chan struct{}, opts.Config.MaxConcurrentRuns)
	}

	return e
}

// Logger returns the engine logger.
func (e *Engine) Logger() logging.Logger { return e.logger }

// RegisterAgent adds an agent under its name.
func (e *Engine) RegisterAgent(a *agent.Agent) error {
	if a == nil || a.Name() == "" {
		return errors.New("agent must have a name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.agents[a.Name()]; exists {
		return fmt.Errorf("agent %q %w", a.Name(), ErrDuplicate)
	}
	e.agents[a.Name()] = a

	e.logger.Debug("engine.agent.registered", "agent", a.Name())

	return nil
}

// RegisterWorkflow adds a workflow under its id.
func (e *Engine) RegisterWorkflow(w *workflow.Workflow) error {
	if w == nil || w.ID() == "" {
		return errors.New("workflow must have an id")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workflows[w.ID()]; exists {
		return fmt.Errorf("workflow %q %w", w.ID(), ErrDuplicate)
	}
	e.workflows[w.ID()] = w

	e.logger.Debug("engine.workflow.registered", "workflow", w.ID(), "steps", len(w.StepIDs()))

	return nil
}

// RegisterCallback adds a step lifecycle callback for subsequent runs.
func (e *Engine) RegisterCallback(cb workflow.Callback) {
	e.callbacks.RegisterCallback(cb)
}

// Agent retrieves a registered agent by exact name.
func (e *Engine) Agent(name string) (*agent.Agent, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.agents[name]
	if !ok {
		return nil, &core.NotRegisteredError{Kind: "agent", Name: name}
	}
	return a, nil
}

// Workflow retrieves a registered workflow by exact id.
func (e *Engine) Workflow(id string) (*workflow.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	w, ok := e.workflows[id]
	if !ok {
		return nil, &core.NotRegisteredError{Kind: "workflow", Name: id}
	}
	return w, nil
}

// Agents lists registered agents sorted by name.
func (e *Engine) Agents() []*agent.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*agent.Agent, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Workflows lists registered workflows sorted by id.
func (e *Engine) Workflows() []*workflow.Workflow {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*workflow.Workflow, 0, len(e.workflows))
	for _, w := range e.workflows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RunOptions configures one Run.
type RunOptions struct {
	// RunID overrides the generated run id.
	RunID string
	// ConversationID scopes agent memory; a new id is generated when empty.
	ConversationID string
}

// RunResult is the outcome of a successful Run.
type RunResult struct {
	RunID          string        `json:"runId"`
	ConversationID string        `json:"conversationId"`
	WorkflowID     string        `json:"workflowId"`
	Output         any           `json:"output"`
	Duration       time.Duration `json:"duration"`
}

// Run executes a registered workflow with input and returns its final output.
//
// Unknown workflow ids fail with core.ErrUnknownWorkflow before anything
// executes. A RunID that is still in flight fails with ErrRunActive. Runs
// waiting for their conversation or a slot are cancellable. Step failures abort the run and are returned unchanged, wrapped
// in *workflow.StepError.
func (e *Engine) Run(ctx context.Context, workflowID string, input any, optFns ...func(o *RunOptions)) (*RunResult, error) {
	wf, err := e.Workflow(workflowID)
	if err != nil {
		e.logger.Warn("engine.run.rejected", "workflow", workflowID, "error", err.Error())
		return nil, err
	}

	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ConversationID == "" {
		opts.ConversationID = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.runsMu.Lock()
	if _, exists := e.activeRuns[opts.RunID]; exists {
		e.runsMu.Unlock()
		e.logger.Warn("engine.run.rejected", "workflow", workflowID, "run_id", opts.RunID, "error", ErrRunActive.Error())
		return nil, fmt.Errorf("run %q %w", opts.RunID, ErrRunActive)
	}
	e.activeRuns[opts.RunID] = cancel
	e.runsMu.Unlock()

	defer func() {
		e.runsMu.Lock()
		delete(e.activeRuns, opts.RunID)
		e.runsMu.Unlock()
	}()

	// The conversation lock comes before the slot so queued runs hold no slot.
	if e.config.SerializeConversations {
		unlock, err := e.convs.lock(runCtx, opts.ConversationID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	if err := e.acquire(runCtx); err != nil {
		return nil, err
	}
	defer e.release()

	rc := workflow.NewRunContext(runCtx, e, func(o *workflow.RunContextOptions) {
		o.RunID = opts.RunID
		o.ConversationID = opts.ConversationID
		o.Logger = e.logger
		o.Callbacks = e.callbacks
	})

	start := time.Now()
	rc.LogInfo("engine.run.start", "workflow", workflowID, "conversation_id", opts.ConversationID)

	out, err := wf.Execute(rc, input)
	dur := time.Since(start)
	if err != nil {
		rc.LogError("engine.run.error", "workflow", workflowID, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return nil, err
	}

	rc.LogInfo("engine.run.complete", "workflow", workflowID, "duration_ms", dur.Milliseconds())

	return &RunResult{
		RunID:          opts.RunID,
		ConversationID: opts.ConversationID,
		WorkflowID:     workflowID,
		Output:         out,
		Duration:       dur,
	}, nil
}

// Cancel aborts an in-flight run. It reports whether the run was found.
func (e *Engine) Cancel(runID string) bool {
	e.runsMu.Lock()
	cancel, ok := e.activeRuns[runID]
	e.runsMu.Unlock()

	if ok {
		cancel()
		e.logger.Info("engine.run.cancelled", "run_id", runID)
	}

	return ok
}

// ActiveRuns lists the ids of in-flight runs.
func (e *Engine) ActiveRuns() []string {
	e.runsMu.Lock()
	defer e.runsMu.Unlock()

	ids := make([]string, 0, len(e.activeRuns))
	for id := range e.activeRuns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) acquire(ctx context.Context) error {
	if e.slots == nil {
		return nil
	}
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	if e.slots != nil {
		<-e.slots
	}
}
