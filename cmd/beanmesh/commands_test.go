package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("BEANMESH_MODEL_API_KEY", "sk-test")
	t.Setenv("BEANMESH_MEMORY_BACKEND", "memory")
	t.Setenv("BEANMESH_WEB_TAVILY_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAgentsCommand(t *testing.T) {
	out, err := execute(t, "agents")
	require.NoError(t, err)

	for _, name := range []string{"task-classifier-agent", "general-agent", "planner-agent", "supervisor-agent", "web-scraper-agent"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "tools: fetch_url")
	assert.Contains(t, out, "update_working_memory")
}

func TestWorkflowsCommand(t *testing.T) {
	out, err := execute(t, "workflows")
	require.NoError(t, err)

	assert.Contains(t, out, "agentic-workflow")
	assert.Contains(t, out, "classify-task -> route-task")
	assert.Contains(t, out, "write-plan -> supervisor-agent-step -> scrape-websites")
}

func TestRunCommand_RequiresQuery(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRunCommand_UnknownWorkflow(t *testing.T) {
	_, err := execute(t, "run", "--workflow", "nope", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `workflow "nope" not registered`)
}
