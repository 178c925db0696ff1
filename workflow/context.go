package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/logging"
)

// Registry resolves agents and workflows by exact name. Unknown names yield
// errors satisfying errors.Is(err, core.ErrNotRegistered).
type Registry interface {
	Agent(name string) (*agent.Agent, error)
	Workflow(id string) (*Workflow, error)
}

// RunContext is handed to every step of one run.
type RunContext struct {
	// Context carries cancellation for the run.
	Context context.Context
	// RunID identifies this workflow execution.
	RunID string
	// ConversationID scopes agent memory across runs.
	ConversationID string
	// Logger is scoped to the run.
	Logger logging.Logger

	registry  Registry
	callbacks *CallbackManager
}

// RunContextOptions configures NewRunContext.
type RunContextOptions struct {
	RunID          string
	ConversationID string
	Logger         logging.Logger
	Callbacks      *CallbackManager
}

// NewRunContext creates a run context. Missing run and conversation ids are
// generated.
func NewRunContext(ctx context.Context, registry Registry, optFns ...func(o *RunContextOptions)) *RunContext {
	opts := RunContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ConversationID == "" {
		opts.ConversationID = uuid.NewString()
	}

	return &RunContext{
		Context:        ctx,
		RunID:          opts.RunID,
		ConversationID: opts.ConversationID,
		Logger:         logging.OrNoOp(opts.Logger),
		registry:       registry,
		callbacks:      opts.Callbacks,
	}
}

// Agent looks up a registered agent.
func (rc *RunContext) Agent(name string) (*agent.Agent, error) {
	return rc.registry.Agent(name)
}

// Workflow looks up a registered workflow.
func (rc *RunContext) Workflow(id string) (*Workflow, error) {
	return rc.registry.Workflow(id)
}

// Generate sends text as a single user turn to the named agent within the
// run's conversation and returns the reply text.
func (rc *RunContext) Generate(agentName, text string) (string, error) {
	a, err := rc.Agent(agentName)
	if err != nil {
		return "", err
	}

	return a.GenerateText(rc.Context, text, func(o *agent.GenerateOptions) {
		o.ConversationID = rc.ConversationID
		o.Logger = logging.With(rc.Logger, "run_id", rc.RunID)
	})
}

// LogDebug logs at debug level with the run id attached.
func (rc *RunContext) LogDebug(msg string, args ...any) {
	rc.Logger.Debug(msg, append([]any{"run_id", rc.RunID}, args...)...)
}

// LogInfo logs at info level with the run id attached.
func (rc *RunContext) LogInfo(msg string, args ...any) {
	rc.Logger.Info(msg, append([]any{"run_id", rc.RunID}, args...)...)
}

// LogWarn logs at warn level with the run id attached.
func (rc *RunContext) LogWarn(msg string, args ...any) {
	rc.Logger.Warn(msg, append([]any{"run_id", rc.RunID}, args...)...)
}

// LogError logs at error level with the run id attached.
func (rc *RunContext) LogError(msg string, args ...any) {
	rc.Logger.Error(msg, append([]any{"run_id", rc.RunID}, args...)...)
}
