package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/beanmesh/core"
)

// ErrEmptyWorkflow is returned by Commit for a workflow without steps.
var ErrEmptyWorkflow = errors.New("workflow has no steps")

// Workflow is an ordered composition of steps with a declared entry input and
// final output shape. It is immutable after Commit and safe for concurrent
// runs. A Workflow is itself a Step.
type Workflow struct {
	id           string
	description  string
	inputSchema  map[string]any
	outputSchema map[string]any
	steps        []Step
	checkInput   func(any) (any, error)
	checkOutput  func(any) (any, error)
}

var _ Step = (*Workflow)(nil)

// Builder assembles a Workflow.
type Builder struct {
	wf  *Workflow
	err error
}

// New starts a workflow whose input is coerced to I and whose final output
// must satisfy O.
func New[I, O any](id, description string) *Builder {
	return &Builder{wf: &Workflow{
		id:           id,
		description:  description,
		inputSchema:  schemaOf[I](),
		outputSchema: schemaOf[O](),
		checkInput:   func(v any) (any, error) { return coerceValid[I](v) },
		checkOutput:  func(v any) (any, error) { return coerceValid[O](v) },
	}}
}

// Then appends a step.
func (b *Builder) Then(step Step) *Builder {
	if b.err != nil {
		return b
	}
	if step == nil {
		b.err = fmt.Errorf("workflow %q: nil step", b.wf.id)
		return b
	}
	for _, s := range b.wf.steps {
		if s.ID() == step.ID() {
			b.err = fmt.Errorf("workflow %q: duplicate step id %q", b.wf.id, step.ID())
			return b
		}
	}
	b.wf.steps = append(b.wf.steps, step)
	return b
}

// Branch appends a branch step built with NewBranch.
func (b *Builder) Branch(step Step) *Builder { return b.Then(step) }

// Commit finalizes the workflow.
func (b *Builder) Commit() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.wf.steps) == 0 {
		return nil, fmt.Errorf("workflow %q: %w", b.wf.id, ErrEmptyWorkflow)
	}
	return b.wf, nil
}

// ID returns the workflow id.
func (w *Workflow) ID() string { return w.id }

// Description returns the workflow description.
func (w *Workflow) Description() string { return w.description }

// InputSchema returns the entry input schema.
func (w *Workflow) InputSchema() map[string]any { return w.inputSchema }

// OutputSchema returns the final output schema.
func (w *Workflow) OutputSchema() map[string]any { return w.outputSchema }

// StepIDs lists the top-level steps in execution order.
func (w *Workflow) StepIDs() []string {
	ids := make([]string, len(w.steps))
	for i, s := range w.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Execute runs the steps in order. The first failure aborts the run and is
// returned wrapped in *StepError.
func (w *Workflow) Execute(rc *RunContext, input any) (any, error) {
	start := time.Now()

	in, err := w.checkInput(input)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow %q: %w", core.ErrInvalidInput, w.id, err)
	}

	rc.LogDebug("workflow.run.start", "workflow", w.id, "steps", len(w.steps))

	cur := in
	for _, step := range w.steps {
		out, err := runStep(rc, w.id, step, cur)
		if err != nil {
			rc.LogError("workflow.run.error", "workflow", w.id, "step", step.ID(), "error", err.Error())
			return nil, err
		}
		cur = out
	}

	out, err := w.checkOutput(cur)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow %q output: %w", core.ErrSchemaViolation, w.id, err)
	}

	rc.LogDebug("workflow.run.complete", "workflow", w.id, "duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

// runStep executes one step with lifecycle callbacks and logging.
func runStep(rc *RunContext, workflowID string, step Step, input any) (any, error) {
	if err := rc.Context.Err(); err != nil {
		return nil, &StepError{WorkflowID: workflowID, StepID: step.ID(), Err: err}
	}

	cc := &CallbackContext{
		RunID:          rc.RunID,
		ConversationID: rc.ConversationID,
		WorkflowID:     workflowID,
		StepID:         step.ID(),
		Input:          input,
	}

	if err := rc.callbacks.ExecuteCallbacks(rc.Context, CallbackBeforeStep, cc); err != nil {
		return nil, &StepError{WorkflowID: workflowID, StepID: step.ID(), Err: fmt.Errorf("before_step callback: %w", err)}
	}

	rc.LogDebug("workflow.step.start", "workflow", workflowID, "step", step.ID())
	start := time.Now()

	out, err := step.Execute(rc, input)
	if err != nil {
		cc.Err = err
		_ = rc.callbacks.ExecuteCallbacks(rc.Context, CallbackOnError, cc)

		return nil, &StepError{WorkflowID: workflowID, StepID: step.ID(), Err: err}
	}

	rc.LogInfo("workflow.step.complete", "workflow", workflowID, "step", step.ID(), "duration_ms", time.Since(start).Milliseconds())

	cc.Output = out
	if err := rc.callbacks.ExecuteCallbacks(rc.Context, CallbackAfterStep, cc); err != nil {
		return nil, &StepError{WorkflowID: workflowID, StepID: step.ID(), Err: fmt.Errorf("after_step callback: %w", err)}
	}

	return out, nil
}
