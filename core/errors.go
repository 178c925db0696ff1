package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvocation marks a failed agent generation (provider unreachable,
	// errored, rate limited or returned unusable content).
	ErrInvocation = errors.New("agent invocation failed")
	// ErrMalformedReply marks an agent reply that could not be parsed or
	// validated against the expected shape.
	ErrMalformedReply = errors.New("malformed structured reply")
	// ErrUnmatchedBranch marks a branch input that no case accepts.
	ErrUnmatchedBranch = errors.New("no branch matched")
	// ErrNotRegistered marks a lookup of an unregistered agent or workflow.
	ErrNotRegistered = errors.New("not registered")
	// ErrUnknownAgent is returned by agent lookups.
	ErrUnknownAgent = fmt.Errorf("agent %w", ErrNotRegistered)
	// ErrUnknownWorkflow is returned by workflow lookups.
	ErrUnknownWorkflow = fmt.Errorf("workflow %w", ErrNotRegistered)
	// ErrInvalidInput marks step or agent input that does not satisfy its
	// declared shape.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSchemaViolation marks step output that does not satisfy its declared
	// shape.
	ErrSchemaViolation = errors.New("schema violation")
)

// NotRegisteredError carries the name of the missing registry entry.
type NotRegisteredError struct {
	Kind string // "agent" or "workflow"
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("%s %q not registered", e.Kind, e.Name)
}

// Is reports whether target is ErrNotRegistered or the kind specific sentinel.
func (e *NotRegisteredError) Is(target error) bool {
	switch target {
	case ErrNotRegistered:
		return true
	case ErrUnknownAgent:
		return e.Kind == "agent"
	case ErrUnknownWorkflow:
		return e.Kind == "workflow"
	}
	return false
}
