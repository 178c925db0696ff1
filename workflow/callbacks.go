package workflow

import (
	"context"
	"sync"

	"github.com/hupe1980/beanmesh/logging"
)

// CallbackType defines the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeStep runs before a workflow step executes. Returning an
	// error aborts the run.
	CallbackBeforeStep CallbackType = "before_step"

	// CallbackAfterStep runs after a step succeeded, with its output.
	CallbackAfterStep CallbackType = "after_step"

	// CallbackOnError runs when a step failed. Its own error is ignored.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext describes the step a callback fires for.
type CallbackContext struct {
	RunID          string
	ConversationID string
	WorkflowID     string
	StepID         string
	Input          any
	Output         any
	Err            error
	CallbackType   CallbackType
}

// Callback is an execution lifecycle hook. Callbacks run synchronously in
// registration order.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackAfterStep,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        log.Printf("step %s finished", cc.StepID)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager routes callbacks by type. It is safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager(callbacks ...Callback) *CallbackManager {
	cm := &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
	for _, cb := range callbacks {
		cm.RegisterCallback(cb)
	}
	return cm
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs the callbacks registered for callbackType and stops at
// the first error. A nil manager runs nothing.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}

	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes one structured line per lifecycle event.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging callback for callbackType.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.OrNoOp(logger),
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute logs the lifecycle event.
func (c *LoggingCallback) Execute(_ context.Context, cc *CallbackContext) error {
	args := []any{
		"callback", string(c.callbackType),
		"run_id", cc.RunID,
		"workflow", cc.WorkflowID,
		"step", cc.StepID,
	}
	if cc.Err != nil {
		c.logger.Warn("workflow.callback", append(args, "error", cc.Err.Error())...)
		return nil
	}
	c.logger.Info("workflow.callback", args...)
	return nil
}
