package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/internal/util"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/memory"
	"github.com/hupe1980/beanmesh/model"
	"github.com/hupe1980/beanmesh/tool"
)

// ErrEmptyReply is returned (wrapped in core.ErrInvocation) when the model
// finishes without any text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// MemoryOptions enables conversation memory for an agent.
type MemoryOptions struct {
	// Store persists history and working memory. Memory is disabled when nil.
	Store core.MemoryStore
	// LastMessages bounds the stored history sent with each call (0 sends all).
	LastMessages int
	// WorkingMemory exposes the working-memory document and its update tool.
	WorkingMemory bool
	// Template seeds the working-memory document before the first update.
	Template string
}

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Description string
	Instruction Instruction
	Memory      MemoryOptions
	Tools       []tool.Tool
	// MaxSteps bounds model calls per Generate (tool loop iterations).
	MaxSteps int
	// MaxParallelTools bounds concurrently executed tool calls (0 = no limit).
	MaxParallelTools int
	Logger           logging.Logger
}

// Agent is a named model backed generator.
type Agent struct {
	name        string
	description string
	llm         model.Model
	instruction Instruction
	memory      MemoryOptions
	tools       []tool.Tool
	executor    *toolExecutor
	maxSteps    int
	logger      logging.Logger
}

// New creates an agent with sensible defaults.
//
// Default configuration:
//   - Instruction "You are <name>, a helpful AI assistant."
//   - No memory, no tools
//   - 5 model steps per Generate
//   - Last 10 stored messages when memory is enabled
//   - memory.TodoTemplate as working-memory seed
func New(name string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		Memory: MemoryOptions{
			LastMessages: 10,
			Template:     memory.TodoTemplate,
		},
		MaxSteps: 5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	tools := append([]tool.Tool(nil), opts.Tools...)
	if opts.Memory.Store != nil && opts.Memory.WorkingMemory {
		tools = append(tools, tool.NewWorkingMemoryTool(opts.Memory.Store))
	}

	registry := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		registry[t.Name()] = t
	}

	return &Agent{
		name:        name,
		description: opts.Description,
		llm:         llm,
		instruction: opts.Instruction,
		memory:      opts.Memory,
		tools:       tools,
		executor:    &toolExecutor{agentName: name, maxParallel: opts.MaxParallelTools, tools: registry},
		maxSteps:    opts.MaxSteps,
		logger:      logging.OrNoOp(opts.Logger),
	}
}

// Name returns the registry name of the agent.
func (a *Agent) Name() string { return a.name }

// Description returns the optional human readable description.
func (a *Agent) Description() string { return a.description }

// Model returns the underlying model.
func (a *Agent) Model() model.Model { return a.llm }

// ToolNames lists the tools offered to the model, in declaration order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for _, t := range a.tools {
		names = append(names, t.Name())
	}
	return names
}

// GenerateOptions configures one Generate call.
type GenerateOptions struct {
	// ConversationID scopes memory. Without it the call is stateless.
	ConversationID string
	// Logger overrides the agent logger for this call.
	Logger logging.Logger
}

// Result is the outcome of Generate.
type Result struct {
	Text  string
	Steps int
	Usage model.TokenUsage
}

// Generate answers the turns and returns the final reply text.
//
// Failures of the model call, an exhausted step budget and empty replies are
// returned wrapped in core.ErrInvocation.
func (a *Agent) Generate(ctx context.Context, turns []core.Message, optFns ...func(o *GenerateOptions)) (*Result, error) {
	opts := GenerateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := a.logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: agent %q: no input turns", core.ErrInvalidInput, a.name)
	}

	start := time.Now()
	logger.Debug("agent.generate.start", "agent", a.name, "conversation_id", opts.ConversationID, "turns", len(turns))

	req, err := a.buildRequest(ctx, turns, opts.ConversationID)
	if err != nil {
		return nil, a.invocationError(logger, err)
	}

	rc := &callContext{ctx: ctx, conversationID: opts.ConversationID, logger: logger}
	limiter := core.NewModelLimiter(a.maxSteps)
	result := &Result{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, a.invocationError(logger, err)
		}

		if err := limiter.Increment(); err != nil {
			return nil, a.invocationError(logger, err)
		}

		resp, err := model.GenerateSync(ctx, a.llm, req)
		if err != nil {
			return nil, a.invocationError(logger, err)
		}

		result.Steps = limiter.Count()
		result.Usage.Add(resp.Usage)

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			result.Text = resp.Content.Text()
			break
		}

		logger.Debug("agent.tool_calls", "agent", a.name, "count", len(calls), "step", result.Steps)

		assistant := resp.Content
		assistant.Role = core.RoleAssistant
		req.Contents = append(req.Contents, assistant, toolContent(a.executor.execute(rc, calls)))
	}

	if strings.TrimSpace(result.Text) == "" {
		return nil, a.invocationError(logger, ErrEmptyReply)
	}

	if err := a.remember(ctx, opts.ConversationID, turns, result.Text); err != nil {
		logger.Error("agent.memory.append.error", "agent", a.name, "error", err.Error())
		return nil, fmt.Errorf("agent %q: persist history: %w", a.name, err)
	}

	logger.Info(
		"agent.generate.complete",
		"agent", a.name,
		"steps", result.Steps,
		"total_tokens", result.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// GenerateText is shorthand for a single user turn.
func (a *Agent) GenerateText(ctx context.Context, text string, optFns ...func(o *GenerateOptions)) (string, error) {
	res, err := a.Generate(ctx, []core.Message{core.UserMessage(text)}, optFns...)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (a *Agent) invocationError(logger logging.Logger, err error) error {
	logger.Error("agent.generate.error", "agent", a.name, "error", err.Error())
	return fmt.Errorf("%w: agent %q: %w", core.ErrInvocation, a.name, err)
}

func (a *Agent) memoryEnabled(conversationID string) bool {
	return a.memory.Store != nil && conversationID != ""
}

// historyKey scopes stored history per agent inside a conversation.
// Working memory is shared by all agents of the conversation.
func (a *Agent) historyKey(conversationID string) string {
	return conversationID + "/" + a.name
}

func (a *Agent) buildRequest(ctx context.Context, turns []core.Message, conversationID string) (model.Request, error) {
	instruction, err := a.instruction.Resolve(ctx)
	if err != nil {
		return model.Request{}, fmt.Errorf("resolve instruction: %w", err)
	}

	contents := make([]core.Content, 0, len(turns))

	if a.memoryEnabled(conversationID) {
		th, err := a.memory.Store.Get(ctx, a.historyKey(conversationID))
		if err != nil {
			return model.Request{}, fmt.Errorf("load history: %w", err)
		}
		for _, m := range th.LastMessages(a.memory.LastMessages) {
			contents = append(contents, m.Content())
		}

		if a.memory.WorkingMemory {
			wm, err := a.memory.Store.Get(ctx, conversationID)
			if err != nil {
				return model.Request{}, fmt.Errorf("load working memory: %w", err)
			}
			if instruction, err = a.withWorkingMemory(instruction, wm.WorkingMemory); err != nil {
				return model.Request{}, err
			}
		}
	}

	for _, m := range turns {
		contents = append(contents, m.Content())
	}

	// The update tool only works with a conversation to write to.
	tools := a.tools
	if !a.memoryEnabled(conversationID) && a.memory.WorkingMemory {
		tools = withoutTool(tools, tool.WorkingMemoryToolName)
	}

	return model.Request{
		Instructions: instruction,
		Contents:     contents,
		Tools:        tool.Definitions(tools),
	}, nil
}

const workingMemoryPrompt = `{{.instruction}}

## Working memory
You have a working memory document for this conversation. Keep it current: whenever it changes, call {{.tool}} with the complete updated document.

<working_memory>
{{.memory}}
</working_memory>`

func (a *Agent) withWorkingMemory(instruction, doc string) (string, error) {
	if doc == "" {
		doc = a.memory.Template
	}

	return util.RenderTemplate(workingMemoryPrompt, map[string]any{
		"instruction": instruction,
		"tool":        tool.WorkingMemoryToolName,
		"memory":      doc,
	})
}

func (a *Agent) remember(ctx context.Context, conversationID string, turns []core.Message, reply string) error {
	if !a.memoryEnabled(conversationID) {
		return nil
	}

	msgs := append(append([]core.Message(nil), turns...), core.AssistantMessage(reply))

	return a.memory.Store.Append(ctx, a.historyKey(conversationID), msgs...)
}

func toolContent(responses []core.FunctionResponse) core.Content {
	parts := make([]core.Part, 0, len(responses))
	for _, r := range responses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: r})
	}
	return core.Content{Role: core.RoleTool, Parts: parts}
}

func withoutTool(tools []tool.Tool, name string) []tool.Tool {
	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Name() != name {
			out = append(out, t)
		}
	}
	return out
}
