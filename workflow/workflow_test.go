package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/model"
)

type fakeRegistry struct {
	agents    map[string]*agent.Agent
	workflows map[string]*Workflow
}

func (r *fakeRegistry) Agent(name string) (*agent.Agent, error) {
	if a, ok := r.agents[name]; ok {
		return a, nil
	}
	return nil, &core.NotRegisteredError{Kind: "agent", Name: name}
}

func (r *fakeRegistry) Workflow(id string) (*Workflow, error) {
	if w, ok := r.workflows[id]; ok {
		return w, nil
	}
	return nil, &core.NotRegisteredError{Kind: "workflow", Name: id}
}

func newRC(reg Registry, optFns ...func(o *RunContextOptions)) *RunContext {
	if reg == nil {
		reg = &fakeRegistry{}
	}
	return NewRunContext(context.Background(), reg, optFns...)
}

type query struct {
	Query string `json:"query" validate:"required"`
}

type labeled struct {
	Kind  string `json:"kind" validate:"required,oneof=a b"`
	Query string `json:"query"`
}

type answer struct {
	Answer string `json:"answer" validate:"required"`
}

func TestStep_CoercesMapInput(t *testing.T) {
	step := NewStep("upper", "", func(_ *RunContext, in query) (answer, error) {
		return answer{Answer: strings.ToUpper(in.Query)}, nil
	})

	out, err := step.Execute(newRC(nil), map[string]any{"query": "hi"})
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "HI"}, out)

	out, err = step.Execute(newRC(nil), &query{Query: "ptr"})
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "PTR"}, out)

	out, err = step.Execute(newRC(nil), []byte(`{"query":"raw"}`))
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "RAW"}, out)
}

func TestStep_Schemas(t *testing.T) {
	step := NewStep("s", "desc", func(_ *RunContext, in labeled) (answer, error) { return answer{}, nil })

	assert.Equal(t, "desc", step.Description())
	props := step.InputSchema()["properties"].(map[string]any)
	assert.Equal(t, []string{"a", "b"}, props["kind"].(map[string]any)["enum"])
	assert.Contains(t, step.OutputSchema()["required"], "answer")
}

func TestStep_InvalidInputAndOutput(t *testing.T) {
	step := NewStep("s", "", func(_ *RunContext, in query) (answer, error) {
		return answer{}, nil // violates required answer
	})

	_, err := step.Execute(newRC(nil), map[string]any{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = step.Execute(newRC(nil), map[string]any{"query": 42})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = step.Execute(newRC(nil), query{Query: "x"})
	assert.ErrorIs(t, err, core.ErrSchemaViolation)
}

func TestBranch_FirstMatchWins(t *testing.T) {
	var ran []string
	mk := func(id string) Step {
		return NewStep(id, "", func(_ *RunContext, in labeled) (answer, error) {
			ran = append(ran, id)
			return answer{Answer: id + ":" + in.Query}, nil
		})
	}

	br := NewBranch("route", func(in labeled) string { return in.Kind },
		When("a", mk("first-a")),
		When("b", mk("only-b")),
		When("a", mk("second-a")),
	)

	out, err := br.Execute(newRC(nil), labeled{Kind: "a", Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "first-a:q"}, out)

	out, err = br.Execute(newRC(nil), labeled{Kind: "b", Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "only-b:q"}, out)

	assert.Equal(t, []string{"first-a", "only-b"}, ran)
	assert.Len(t, br.OutputSchema()["anyOf"], 3)
}

func TestBranch_Unmatched(t *testing.T) {
	type keyed struct {
		Key string `json:"key"`
	}
	br := NewBranch("route", func(in keyed) string { return in.Key },
		When("x", NewStep("x", "", func(_ *RunContext, in keyed) (keyed, error) { return in, nil })),
	)

	_, err := br.Execute(newRC(nil), keyed{Key: "poetry"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnmatchedBranch)

	var ue *UnmatchedBranchError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "poetry", ue.Key)
}

func TestBuilder_Commit(t *testing.T) {
	_, err := New[query, any]("empty", "").Commit()
	assert.ErrorIs(t, err, ErrEmptyWorkflow)

	s := NewStep("s", "", func(_ *RunContext, in query) (query, error) { return in, nil })
	_, err = New[query, query]("dup", "").Then(s).Then(s).Commit()
	assert.ErrorContains(t, err, `duplicate step id "s"`)

	_, err = New[query, query]("nil", "").Then(nil).Commit()
	assert.Error(t, err)
}

func TestWorkflow_SequentialAndAbortsOnFailure(t *testing.T) {
	var ran []string
	appendStep := func(id string, fail bool) Step {
		return NewStep(id, "", func(_ *RunContext, in query) (query, error) {
			ran = append(ran, id)
			if fail {
				return query{}, errors.New("kaput")
			}
			return query{Query: in.Query + "+" + id}, nil
		})
	}

	wf, err := New[query, query]("wf", "").
		Then(appendStep("one", false)).
		Then(appendStep("two", false)).
		Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, wf.StepIDs())

	out, err := wf.Execute(newRC(nil), query{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, query{Query: "q+one+two"}, out)

	ran = nil
	failing, err := New[query, query]("wf", "").
		Then(appendStep("one", true)).
		Then(appendStep("two", false)).
		Commit()
	require.NoError(t, err)

	_, err = failing.Execute(newRC(nil), query{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, []string{"one"}, ran)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "wf", se.WorkflowID)
	assert.Equal(t, "one", se.StepID)
	assert.EqualError(t, se.Unwrap(), "kaput")
}

func TestWorkflow_InputAndOutputChecks(t *testing.T) {
	wf, err := New[query, answer]("wf", "").
		Then(NewStep("echo", "", func(_ *RunContext, in query) (query, error) { return in, nil })).
		Commit()
	require.NoError(t, err)

	_, err = wf.Execute(newRC(nil), map[string]any{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = wf.Execute(newRC(nil), query{Query: "q"})
	assert.ErrorIs(t, err, core.ErrSchemaViolation)
}

func TestWorkflow_NestedLookupThroughRunContext(t *testing.T) {
	inner, err := New[query, answer]("inner", "").
		Then(NewStep("answer", "", func(_ *RunContext, in query) (answer, error) {
			return answer{Answer: "inner:" + in.Query}, nil
		})).
		Commit()
	require.NoError(t, err)

	outer, err := New[query, answer]("outer", "").
		Then(NewStep("delegate", "", func(rc *RunContext, in query) (answer, error) {
			wf, err := rc.Workflow("inner")
			if err != nil {
				return answer{}, err
			}
			out, err := wf.Execute(rc, in)
			if err != nil {
				return answer{}, err
			}
			return Coerce[answer](out)
		})).
		Commit()
	require.NoError(t, err)

	reg := &fakeRegistry{workflows: map[string]*Workflow{"inner": inner}}
	out, err := outer.Execute(newRC(reg), query{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, answer{Answer: "inner:q"}, out)

	_, err = outer.Execute(newRC(&fakeRegistry{}), query{Query: "q"})
	assert.ErrorIs(t, err, core.ErrUnknownWorkflow)
}

func TestRunContext_Generate(t *testing.T) {
	llm := model.NewMockModel("t", "mock")
	llm.AddResponse("ping", "pong")

	reg := &fakeRegistry{agents: map[string]*agent.Agent{"general-agent": agent.New("general-agent", llm)}}
	rc := newRC(reg, func(o *RunContextOptions) { o.ConversationID = "conv" })
	assert.Equal(t, "conv", rc.ConversationID)
	assert.NotEmpty(t, rc.RunID)

	text, err := rc.Generate("general-agent", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", text)

	_, err = rc.Generate("nobody", "ping")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestWorkflow_Callbacks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(cb CallbackType) Callback {
		return NewFunctionCallback(cb, func(_ context.Context, cc *CallbackContext) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, fmt.Sprintf("%s:%s", cc.CallbackType, cc.StepID))
			return nil
		})
	}

	cm := NewCallbackManager(record(CallbackBeforeStep), record(CallbackAfterStep), record(CallbackOnError))

	ok := NewStep("ok", "", func(_ *RunContext, in query) (query, error) { return in, nil })
	bad := NewStep("bad", "", func(_ *RunContext, in query) (query, error) { return in, errors.New("x") })

	wf, err := New[query, query]("wf", "").Then(ok).Then(bad).Commit()
	require.NoError(t, err)

	_, err = wf.Execute(newRC(nil, func(o *RunContextOptions) { o.Callbacks = cm }), query{Query: "q"})
	require.Error(t, err)

	assert.Equal(t, []string{
		"before_step:ok", "after_step:ok",
		"before_step:bad", "on_error:bad",
	}, events)
}

func TestWorkflow_BeforeStepCallbackAborts(t *testing.T) {
	ran := false
	step := NewStep("s", "", func(_ *RunContext, in query) (query, error) {
		ran = true
		return in, nil
	})
	wf, err := New[query, query]("wf", "").Then(step).Commit()
	require.NoError(t, err)

	deny := NewFunctionCallback(CallbackBeforeStep, func(context.Context, *CallbackContext) error {
		return errors.New("denied")
	})

	_, err = wf.Execute(newRC(nil, func(o *RunContextOptions) { o.Callbacks = NewCallbackManager(deny) }), query{Query: "q"})
	assert.ErrorContains(t, err, "denied")
	assert.False(t, ran)
}

func TestWorkflow_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf, err := New[query, query]("wf", "").
		Then(NewStep("s", "", func(_ *RunContext, in query) (query, error) { return in, nil })).
		Commit()
	require.NoError(t, err)

	_, err = wf.Execute(NewRunContext(ctx, &fakeRegistry{}), query{Query: "q"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoerce(t *testing.T) {
	q, err := Coerce[query](map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", q.Query)

	_, err = Coerce[query]("not an object")
	assert.Error(t, err)
}
