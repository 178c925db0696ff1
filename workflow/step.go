package workflow

import (
	"fmt"
	"reflect"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/internal/util"
	"github.com/hupe1980/beanmesh/reply"
)

// Step is a typed unit of work inside a workflow.
type Step interface {
	ID() string
	Description() string
	InputSchema() map[string]any
	OutputSchema() map[string]any
	Execute(rc *RunContext, input any) (any, error)
}

// StepFunc is the body of a typed step.
type StepFunc[I, O any] func(rc *RunContext, in I) (O, error)

type typedStep[I, O any] struct {
	id           string
	description  string
	inputSchema  map[string]any
	outputSchema map[string]any
	fn           StepFunc[I, O]
}

// NewStep builds a step whose input is coerced to I and validated before fn
// runs, and whose output is validated after. Invalid input fails with
// core.ErrInvalidInput, invalid output with core.ErrSchemaViolation.
func NewStep[I, O any](id, description string, fn StepFunc[I, O]) Step {
	return &typedStep[I, O]{
		id:           id,
		description:  description,
		inputSchema:  schemaOf[I](),
		outputSchema: schemaOf[O](),
		fn:           fn,
	}
}

func (s *typedStep[I, O]) ID() string                   { return s.id }
func (s *typedStep[I, O]) Description() string          { return s.description }
func (s *typedStep[I, O]) InputSchema() map[string]any  { return s.inputSchema }
func (s *typedStep[I, O]) OutputSchema() map[string]any { return s.outputSchema }

func (s *typedStep[I, O]) Execute(rc *RunContext, input any) (any, error) {
	in, err := coerceValid[I](input)
	if err != nil {
		return nil, fmt.Errorf("%w: step %q: %w", core.ErrInvalidInput, s.id, err)
	}

	out, err := s.fn(rc, in)
	if err != nil {
		return nil, err
	}

	if err := reply.Validate(&out); err != nil {
		return nil, fmt.Errorf("%w: step %q output: %w", core.ErrSchemaViolation, s.id, err)
	}

	return out, nil
}

// schemaOf derives the schema of T; interface types accept anything.
func schemaOf[T any]() map[string]any {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Interface {
		return map[string]any{}
	}
	return util.SchemaOf[T]()
}
