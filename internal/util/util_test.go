package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classification struct {
	TaskType string `json:"taskType" validate:"required,oneof=general research" description:"kind of task"`
	Query    string `json:"query"`
	Note     string `json:"note,omitempty"`
	Limit    *int   `json:"limit"`
}

type envelope struct {
	Inner classification `json:"inner"`
	Tags  []string       `json:"tags,omitempty"`
}

func TestCreateSchema_TagsAndRequired(t *testing.T) {
	schema := CreateSchema(classification{})
	props := schema["properties"].(map[string]any)

	taskType := props["taskType"].(map[string]any)
	assert.Equal(t, "string", taskType["type"])
	assert.Equal(t, []string{"general", "research"}, taskType["enum"])
	assert.Equal(t, "kind of task", taskType["description"])

	assert.ElementsMatch(t, []string{"taskType", "query"}, schema["required"])
}

func TestSchemaOf_NestedStruct(t *testing.T) {
	schema := SchemaOf[envelope]()
	props := schema["properties"].(map[string]any)

	inner := props["inner"].(map[string]any)
	assert.Equal(t, "object", inner["type"])
	assert.Contains(t, inner["properties"], "taskType")
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])
	assert.Equal(t, []string{"inner"}, schema["required"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	assert.Equal(t, "object", CreateSchema("x")["type"])
	assert.Equal(t, "object", CreateSchema(nil)["type"])
	assert.Equal(t, "object", SchemaOf[any]()["type"])
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(classification{})

	require.NoError(t, ValidateParameters(map[string]any{"taskType": "general", "query": "q"}, schema))

	err := ValidateParameters(map[string]any{"taskType": "general"}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "query", vErr.Field)

	err = ValidateParameters(map[string]any{"taskType": "other", "query": "q"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "must be one of")

	err = ValidateParameters(map[string]any{"taskType": 1, "query": "q"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type string")
}

func TestValidateParameters_JSONDecodedRequired(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": float64(5)}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"x": 5.5}, schema))
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	out, err = RenderTemplate("<memory>{{ .memory }}</memory>", map[string]any{"memory": "- [ ] a & b"})
	require.NoError(t, err)
	assert.Equal(t, "<memory>- [ ] a & b</memory>", out, "prompt text must not be HTML escaped")

	out, err = RenderTemplate(`{{ default "none" .memory }}`, map[string]any{"memory": ""})
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	_, err = RenderTemplate("{{ .broken", nil)
	assert.Error(t, err)
}
