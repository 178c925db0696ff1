package core

import (
	"context"

	"github.com/hupe1980/beanmesh/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent: the request context, the calling agent and conversation, the
// function call id and a logger.
type ToolContext struct {
	ctx            context.Context
	agentName      string
	conversationID string
	functionCallID string
	logger         logging.Logger
}

// NewToolContext constructs a tool context. A nil logger is replaced with a
// NoOpLogger.
func NewToolContext(ctx context.Context, agentName, conversationID, functionCallID string, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:            ctx,
		agentName:      agentName,
		conversationID: conversationID,
		functionCallID: functionCallID,
		logger:         logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// AgentName returns the name of the agent issuing the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// ConversationID returns the conversation the call belongs to (may be empty).
func (tc *ToolContext) ConversationID() string { return tc.conversationID }

// FunctionCallID returns the model supplied call id.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }
