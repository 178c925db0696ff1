package workflow

import (
	"fmt"

	"github.com/hupe1980/beanmesh/core"
)

// Case binds a branch key to the step run for it.
type Case[K comparable] struct {
	Key  K
	Step Step
}

// When is shorthand for a Case literal.
func When[K comparable](key K, step Step) Case[K] {
	return Case[K]{Key: key, Step: step}
}

type branch[I any, K comparable] struct {
	id       string
	selector func(I) K
	cases    []Case[K]
}

// NewBranch builds a step that derives a key from its input and runs the first
// case declared for that key, passing the input through unchanged. A key
// without a case fails with *UnmatchedBranchError.
func NewBranch[I any, K comparable](id string, selector func(I) K, cases ...Case[K]) Step {
	return &branch[I, K]{id: id, selector: selector, cases: cases}
}

func (b *branch[I, K]) ID() string { return b.id }

func (b *branch[I, K]) Description() string {
	keys := make([]string, 0, len(b.cases))
	for _, c := range b.cases {
		keys = append(keys, fmt.Sprint(c.Key))
	}
	return fmt.Sprintf("branch on %v", keys)
}

func (b *branch[I, K]) InputSchema() map[string]any { return schemaOf[I]() }

// OutputSchema is the union of the case outputs.
func (b *branch[I, K]) OutputSchema() map[string]any {
	anyOf := make([]any, 0, len(b.cases))
	for _, c := range b.cases {
		anyOf = append(anyOf, c.Step.OutputSchema())
	}
	return map[string]any{"anyOf": anyOf}
}

func (b *branch[I, K]) Execute(rc *RunContext, input any) (any, error) {
	in, err := coerceValid[I](input)
	if err != nil {
		return nil, fmt.Errorf("%w: step %q: %w", core.ErrInvalidInput, b.id, err)
	}

	key := b.selector(in)
	for _, c := range b.cases {
		if c.Key != key {
			continue
		}

		rc.LogDebug("workflow.branch.selected", "step", b.id, "key", fmt.Sprint(key), "case", c.Step.ID())

		return runStep(rc, b.id, c.Step, input)
	}

	rc.LogWarn("workflow.branch.unmatched", "step", b.id, "key", fmt.Sprint(key))

	return nil, &UnmatchedBranchError{StepID: b.id, Key: fmt.Sprint(key)}
}
