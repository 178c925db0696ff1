package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/beanmesh/core"
)

// Interface compliance (compile-time assertions)
var _ core.MemoryStore = (*InMemoryStore)(nil)

func TestInMemoryStore_GetUnknown(t *testing.T) {
	store := NewInMemoryStore()

	th, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", th.ID)
	assert.Empty(t, th.Messages)
	assert.Empty(t, th.WorkingMemory)
}

func TestInMemoryStore_AppendAndWorkingMemory(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, "c1", core.UserMessage("q"), core.AssistantMessage("a")))
	require.NoError(t, store.SetWorkingMemory(ctx, "c1", TodoTemplate))
	require.NoError(t, store.SetWorkingMemory(ctx, "c1", "# Todo list\n\n- [x] done"))

	th, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, core.RoleUser, th.Messages[0].Role)
	assert.Equal(t, "a", th.Messages[1].Text)
	assert.Equal(t, "# Todo list\n\n- [x] done", th.WorkingMemory)
	assert.False(t, th.UpdatedAt.IsZero())
}

func TestInMemoryStore_CopyIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Append(ctx, "c1", core.UserMessage("q")))

	th, _ := store.Get(ctx, "c1")
	th.Messages[0].Text = "changed"
	th.WorkingMemory = "changed"

	again, _ := store.Get(ctx, "c1")
	assert.Equal(t, "q", again.Messages[0].Text)
	assert.Empty(t, again.WorkingMemory)
}

func TestInMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Append(ctx, "c1", core.UserMessage("q")))
	require.NoError(t, store.Delete(ctx, "c1"))

	th, _ := store.Get(ctx, "c1")
	assert.Empty(t, th.Messages)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, "c1", core.UserMessage(fmt.Sprint(i)))
			_ = store.SetWorkingMemory(ctx, "c1", fmt.Sprint(i))
			_, _ = store.Get(ctx, "c1")
		}(i)
	}
	wg.Wait()

	th, _ := store.Get(ctx, "c1")
	assert.Len(t, th.Messages, 50)
	assert.NotEmpty(t, th.WorkingMemory)
}
