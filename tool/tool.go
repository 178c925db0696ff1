// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (web search, page fetches, working-memory
// updates) with schema validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/internal/util"
	"github.com/hupe1980/beanmesh/model"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Define a JSON schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is provided to the model to decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with arguments decoded from the model's JSON.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Gateway exposes a discoverable set of tools. Discovery happens when an agent
// is constructed; the returned set stays fixed for the agent's lifetime.
type Gateway interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// StaticGateway serves a fixed tool set.
type StaticGateway []Tool

// Tools implements Gateway.
func (g StaticGateway) Tools(context.Context) ([]Tool, error) {
	out := make([]Tool, len(g))
	copy(out, g)
	return out, nil
}

// Definitions converts tools into model tool declarations.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
