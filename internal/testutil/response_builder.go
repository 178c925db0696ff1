package testutil

import (
	"encoding/json"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/model"
)

// TextResponse builds a final assistant text response.
func TextResponse(text string) model.Response {
	return model.Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	}
}

// ToolCallResponse builds an assistant response requesting one tool call. args
// is marshaled to JSON; a marshal failure panics since it means a broken test.
func ToolCallResponse(id, name string, args map[string]any) model.Response {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return model.Response{
		Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: string(raw)}},
		}},
		FinishReason: "tool_calls",
	}
}
