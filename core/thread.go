package core

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted, role-tagged conversation turn.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, CreatedAt: time.Now().UTC()}
}

// UserMessage is shorthand for NewMessage(RoleUser, text).
func UserMessage(text string) Message { return NewMessage(RoleUser, text) }

// AssistantMessage is shorthand for NewMessage(RoleAssistant, text).
func AssistantMessage(text string) Message { return NewMessage(RoleAssistant, text) }

// Content converts the message into model request content.
func (m Message) Content() Content { return NewTextContent(m.Role, m.Text) }

// Thread is the unit a MemoryStore keeps per key: ordered history plus the
// working-memory document.
//
// Contract:
//   - Messages are in append order
//   - WorkingMemory is empty until first written, then replaced wholesale
//   - Clone performs deep copies so callers can diverge safely
type Thread struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	WorkingMemory string    `json:"workingMemory"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewThread creates an empty thread.
func NewThread(id string) *Thread {
	return &Thread{ID: id, Messages: []Message{}}
}

// Clone returns a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	msgs := make([]Message, len(t.Messages))
	copy(msgs, t.Messages)
	return &Thread{ID: t.ID, Messages: msgs, WorkingMemory: t.WorkingMemory, UpdatedAt: t.UpdatedAt}
}

// LastMessages returns at most n trailing messages (all when n <= 0).
func (t *Thread) LastMessages(n int) []Message {
	if n <= 0 || n >= len(t.Messages) {
		return t.Messages
	}
	return t.Messages[len(t.Messages)-n:]
}
