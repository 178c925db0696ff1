package tool

import (
	"errors"
	"strings"

	"github.com/hupe1980/beanmesh/core"
)

// WorkingMemoryToolName is the name models use to rewrite working memory.
const WorkingMemoryToolName = "update_working_memory"

type workingMemoryArgs struct {
	Memory string `json:"memory" description:"The complete updated working memory document in markdown. Replaces the previous document."`
}

// NewWorkingMemoryTool returns the tool through which an agent rewrites the
// conversation's working-memory document. The document is replaced wholesale
// under the calling conversation id.
func NewWorkingMemoryTool(store core.MemoryStore) Tool {
	return NewTypedTool(
		WorkingMemoryToolName,
		"Update the working memory for this conversation. Always pass the full document; it overwrites the previous one.",
		func(tc *core.ToolContext, args workingMemoryArgs) (any, error) {
			convID := tc.ConversationID()
			if convID == "" {
				return nil, NewToolError(WorkingMemoryToolName, "no conversation bound to this call", CodeExecution)
			}
			if strings.TrimSpace(args.Memory) == "" {
				return nil, NewToolError(WorkingMemoryToolName, "memory must not be empty", CodeValidation)
			}
			if store == nil {
				return nil, errors.New("memory store not configured")
			}

			if err := store.SetWorkingMemory(tc.Context(), convID, args.Memory); err != nil {
				return nil, err
			}

			tc.Logger().Debug("tool.working_memory.updated", "conversation_id", convID, "bytes", len(args.Memory))

			return map[string]any{"success": true}, nil
		},
	)
}
