package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/tool"
)

// toolExecutor runs one batch of function calls, possibly in parallel, and
// returns exactly one FunctionResponse per call in call order. It never
// panics; tool panics and errors become error responses for the model.
type toolExecutor struct {
	agentName   string
	maxParallel int
	tools       map[string]tool.Tool
}

func (e *toolExecutor) execute(
	rc *callContext,
	calls []core.FunctionCall,
) []core.FunctionResponse {
	n := len(calls)
	results := make([]core.FunctionResponse, n)
	if n == 0 {
		return results
	}

	if n == 1 {
		results[0] = e.executeOne(rc, calls[0])
		return results
	}

	maxPar := e.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.executeOne(rc, fc)
		}(i, calls[i])
	}
	wg.Wait()

	rc.logger.Debug(
		"agent.functions.batch.complete",
		"agent", e.agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

func (e *toolExecutor) executeOne(rc *callContext, fc core.FunctionCall) core.FunctionResponse {
	resp := core.FunctionResponse{ID: fc.ID, Name: fc.Name}

	if err := rc.ctx.Err(); err != nil {
		resp.Error = err.Error()
		return resp
	}

	toolCtx := core.NewToolContext(rc.ctx, e.agentName, rc.conversationID, fc.ID, rc.logger)

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				rc.logger.Error("agent.function.panic", "agent", e.agentName, "function", fc.Name, "recover", r)
			}
		}()
		result, err = e.call(toolCtx, fc.Name, fc.Arguments)
	}()

	rc.logger.Info(
		"agent.function.executed",
		"agent", e.agentName,
		"function", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	resp.Response = result

	return resp
}

// call centralizes tool lookup and argument decoding.
func (e *toolExecutor) call(toolCtx *core.ToolContext, name, args string) (any, error) {
	impl, ok := e.tools[name]
	if !ok {
		return nil, tool.NewToolError(name, "tool not found", tool.CodeNotFound)
	}

	var argMap map[string]any
	if args == "" {
		argMap = map[string]any{}
	} else if err := json.Unmarshal([]byte(args), &argMap); err != nil {
		return nil, tool.NewToolError(name, fmt.Sprintf("failed to unmarshal args: %v", err), tool.CodeValidation)
	}

	return impl.Call(toolCtx, argMap)
}

// callContext carries the per-Generate values through tool execution.
type callContext struct {
	ctx            context.Context
	conversationID string
	logger         logging.Logger
}

type panicErr struct {
	val   any
	stack []byte
}

func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
