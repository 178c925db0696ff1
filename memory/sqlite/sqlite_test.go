package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/memory"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_GetUnknown(t *testing.T) {
	s, _ := newStore(t)

	th, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", th.ID)
	assert.Empty(t, th.Messages)
	assert.Empty(t, th.WorkingMemory)
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Append(ctx, "c1", core.UserMessage("one"), core.AssistantMessage("two")))
	require.NoError(t, s.Append(ctx, "c1", core.UserMessage("three")))
	require.NoError(t, s.Append(ctx, "c2", core.UserMessage("other")))

	th, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, th.Messages, 3)
	assert.Equal(t, "one", th.Messages[0].Text)
	assert.Equal(t, core.RoleAssistant, th.Messages[1].Role)
	assert.Equal(t, "three", th.Messages[2].Text)
	assert.False(t, th.Messages[0].CreatedAt.IsZero())
}

func TestStore_WorkingMemoryOverwrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.SetWorkingMemory(ctx, "c1", memory.TodoTemplate))
	require.NoError(t, s.Append(ctx, "c1", core.UserMessage("q")))
	require.NoError(t, s.SetWorkingMemory(ctx, "c1", "# Todo list\n\n- [x] done"))

	th, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "# Todo list\n\n- [x] done", th.WorkingMemory)
	assert.Len(t, th.Messages, 1)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)

	require.NoError(t, s.Append(ctx, "c1", core.UserMessage("persisted")))
	require.NoError(t, s.SetWorkingMemory(ctx, "c1", "plan"))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	th, err := reopened.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, th.Messages, 1)
	assert.Equal(t, "persisted", th.Messages[0].Text)
	assert.Equal(t, "plan", th.WorkingMemory)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Append(ctx, "c1", core.UserMessage("q")))
	require.NoError(t, s.Delete(ctx, "c1"))

	th, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, th.Messages)
}
