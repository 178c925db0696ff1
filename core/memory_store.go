package core

import "context"

// MemoryStore persists conversation history and the working-memory document
// keyed by thread id. Get on an unknown id returns an empty thread, not an
// error. SetWorkingMemory overwrites the previous document; there is no merge
// and no cross-call locking, so concurrent writers to the same id race and the
// last write wins.
type MemoryStore interface {
	Get(ctx context.Context, threadID string) (*Thread, error)
	Append(ctx context.Context, threadID string, msgs ...Message) error
	SetWorkingMemory(ctx context.Context, threadID string, doc string) error
}
