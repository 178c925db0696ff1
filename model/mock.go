package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/beanmesh/core"
)

// MockModel is a deterministic in-memory Model useful for tests & examples.
//
// Resolution order per Generate call:
//  1. an injected error (SetError)
//  2. the next queued response (Enqueue), FIFO
//  3. a canned reply registered for the last user text (AddResponse)
//  4. "Mock response to: <text>"
//
// Every request is recorded and can be inspected through Requests.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	queue     []Response
	err       error
	requests  []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an exact user prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends scripted responses consumed in order.
func (m *MockModel) Enqueue(resps ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resps...)
}

// EnqueueText appends scripted final text responses.
func (m *MockModel) EnqueueText(texts ...string) {
	for _, t := range texts {
		m.Enqueue(Response{Content: core.NewTextContent(core.RoleAssistant, t), FinishReason: "stop"})
	}
}

// SetError makes every subsequent Generate call fail with err (nil clears).
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate calls.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) next(req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.err != nil {
		return Response{}, m.err
	}

	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r, nil
	}

	input := LastUserText(req)
	full, ok := m.responses[input]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", input)
	}

	return Response{Content: core.NewTextContent(core.RoleAssistant, full), FinishReason: "stop"}, nil
}

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		final, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			for _, r := range final.Content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, string(r)),
				}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// LastUserText returns the text of the last user content in req.
func LastUserText(req Request) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == core.RoleUser {
			return req.Contents[i].Text()
		}
	}
	return ""
}
