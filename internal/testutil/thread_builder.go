package testutil

import (
	"github.com/hupe1980/beanmesh/core"
)

// ThreadBuilder helps construct threads with fluent chaining for tests.
// Example:
//
//	th := NewThreadBuilder("c1").User("hi").Assistant("hello").WorkingMemory("# Todo list").Build()
type ThreadBuilder struct {
	id   string
	msgs []core.Message
	doc  string
}

// NewThreadBuilder creates a new builder for a thread with the given id.
func NewThreadBuilder(id string) *ThreadBuilder {
	return &ThreadBuilder{id: id}
}

// User appends a user turn (chainable).
func (b *ThreadBuilder) User(text string) *ThreadBuilder {
	b.msgs = append(b.msgs, core.UserMessage(text))
	return b
}

// Assistant appends an assistant turn (chainable).
func (b *ThreadBuilder) Assistant(text string) *ThreadBuilder {
	b.msgs = append(b.msgs, core.AssistantMessage(text))
	return b
}

// WorkingMemory sets the working-memory document (chainable).
func (b *ThreadBuilder) WorkingMemory(doc string) *ThreadBuilder {
	b.doc = doc
	return b
}

// Messages returns the accumulated turns.
func (b *ThreadBuilder) Messages() []core.Message {
	out := make([]core.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Build returns a *core.Thread with pre-populated messages and working memory.
func (b *ThreadBuilder) Build() *core.Thread {
	th := core.NewThread(b.id)
	th.Messages = append(th.Messages, b.msgs...)
	th.WorkingMemory = b.doc
	return th
}

// Texts projects messages to "role: text" strings for order assertions.
func Texts(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role + ": " + m.Text
	}
	return out
}
