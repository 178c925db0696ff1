package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/beanmesh/core"
)

// InMemoryStore is a process-local MemoryStore. It keeps one thread per id
// (history plus working memory).
//
// Concurrency: protected by RWMutex; returned threads are deep copies.
// Durability: none. Suitable for tests, demos and single process runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*core.Thread
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*core.Thread)}
}

// Get returns a copy of the thread, or an empty thread for unknown ids.
func (m *InMemoryStore) Get(_ context.Context, threadID string) (*core.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	th, ok := m.threads[threadID]
	if !ok {
		return core.NewThread(threadID), nil
	}

	return th.Clone(), nil
}

// Append adds messages to the thread history in order.
func (m *InMemoryStore) Append(_ context.Context, threadID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	th := m.thread(threadID)
	th.Messages = append(th.Messages, msgs...)
	th.UpdatedAt = time.Now().UTC()

	return nil
}

// SetWorkingMemory replaces the thread's working-memory document.
func (m *InMemoryStore) SetWorkingMemory(_ context.Context, threadID string, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	th := m.thread(threadID)
	th.WorkingMemory = doc
	th.UpdatedAt = time.Now().UTC()

	return nil
}

// Delete drops a thread. Unknown ids are ignored.
func (m *InMemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.threads, threadID)

	return nil
}

// thread returns the stored thread, creating it. Callers hold the write lock.
func (m *InMemoryStore) thread(threadID string) *core.Thread {
	th, ok := m.threads[threadID]
	if !ok {
		th = core.NewThread(threadID)
		m.threads[threadID] = th
	}
	return th
}
