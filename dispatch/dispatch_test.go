package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/internal/testutil"
	"github.com/hupe1980/beanmesh/memory"
	"github.com/hupe1980/beanmesh/model"
	"github.com/hupe1980/beanmesh/reply"
	"github.com/hupe1980/beanmesh/tool"
	"github.com/hupe1980/beanmesh/workflow"
)

type fixture struct {
	engine *engine.Engine
	store  *memory.InMemoryStore
	models map[string]*model.MockModel
}

func newFixture(t *testing.T, optFns ...func(d *Deps)) *fixture {
	t.Helper()

	f := &fixture{
		engine: engine.New(),
		store:  memory.NewInMemoryStore(),
		models: map[string]*model.MockModel{},
	}

	deps := Deps{Store: f.store, Models: map[string]model.Model{}}
	for _, name := range []string{ClassifierAgentName, GeneralAgentName, PlannerAgentName, SupervisorAgentName, WebScraperAgentName} {
		m := model.NewMockModel(name, "mock")
		f.models[name] = m
		deps.Models[name] = m
	}
	for _, fn := range optFns {
		fn(&deps)
	}

	require.NoError(t, Register(context.Background(), f.engine, deps))

	return f
}

func (f *fixture) run(t *testing.T, query string) (*engine.RunResult, error) {
	t.Helper()
	return f.engine.Run(context.Background(), AgenticWorkflowID, Query{Query: query}, func(o *engine.RunOptions) {
		o.ConversationID = "conv-1"
	})
}

func (f *fixture) rc() *workflow.RunContext {
	return workflow.NewRunContext(context.Background(), f.engine, func(o *workflow.RunContextOptions) {
		o.ConversationID = "conv-1"
	})
}

func stepID(err error) string {
	var se *workflow.StepError
	if errors.As(err, &se) {
		return se.StepID
	}
	return ""
}

func TestEnums_Valid(t *testing.T) {
	assert.True(t, TaskGeneral.Valid())
	assert.True(t, TaskResearch.Valid())
	assert.False(t, TaskType("coding").Valid())
	assert.False(t, TaskType("").Valid())

	assert.True(t, NextWebScraper.Valid())
	assert.True(t, NextReporting.Valid())
	assert.False(t, NextAgent("web-scrapper-agent").Valid())
}

func TestRegister_AgentsAndWorkflows(t *testing.T) {
	f := newFixture(t)

	names := []string{}
	for _, a := range f.engine.Agents() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{GeneralAgentName, PlannerAgentName, SupervisorAgentName, ClassifierAgentName, WebScraperAgentName}, names)

	research, err := f.engine.Workflow(ResearchWorkflowID)
	require.NoError(t, err)
	assert.Equal(t, []string{WritePlanStepID, SupervisorStepID, ScrapeWebsitesStepID}, research.StepIDs())

	agentic, err := f.engine.Workflow(AgenticWorkflowID)
	require.NoError(t, err)
	assert.Equal(t, []string{ClassifyTaskStepID, RouteTaskStepID}, agentic.StepIDs())

	planner, err := f.engine.Agent(PlannerAgentName)
	require.NoError(t, err)
	assert.Contains(t, planner.ToolNames(), tool.WorkingMemoryToolName)

	classifier, err := f.engine.Agent(ClassifierAgentName)
	require.NoError(t, err)
	assert.Empty(t, classifier.ToolNames())
}

func TestRegister_Failures(t *testing.T) {
	err := Register(context.Background(), engine.New(), Deps{})
	assert.ErrorIs(t, err, ErrNoModel)

	e := engine.New()
	deps := Deps{Model: model.NewMockModel("m", "mock")}
	require.NoError(t, Register(context.Background(), e, deps))
	assert.ErrorIs(t, Register(context.Background(), e, deps), engine.ErrDuplicate)
}

func TestRegister_ScraperToolsFromGateway(t *testing.T) {
	search := tool.NewFunctionTool("web_search", "search", map[string]any{"type": "object"},
		func(*core.ToolContext, map[string]any) (any, error) { return "ok", nil })

	f := newFixture(t, func(d *Deps) { d.Gateway = tool.StaticGateway{search} })

	scraper, err := f.engine.Agent(WebScraperAgentName)
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search"}, scraper.ToolNames())
}

func TestClassify_FencedAndRaw(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText("```json\n{\"taskType\":\"general\"}\n```", `{"taskType":"general"}`)

	for i := 0; i < 2; i++ {
		out, err := NewClassifyStep().Execute(f.rc(), Query{Query: "hi"})
		require.NoError(t, err)
		assert.Equal(t, Classification{TaskType: TaskGeneral, Query: "hi"}, out)
	}
}

func TestClassify_RejectsUnknownTaskType(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText(`{"taskType":"coding"}`)

	_, err := f.run(t, "write me a program")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedReply)
	assert.Equal(t, ClassifyTaskStepID, stepID(err))
	assert.Zero(t, f.models[GeneralAgentName].Calls())
	assert.Zero(t, f.models[PlannerAgentName].Calls())
}

func TestClassify_MalformedReplyHasNoDefault(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText("I don't know")

	res, err := f.run(t, "What is the capital of France?")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, core.ErrMalformedReply)
	assert.NotErrorIs(t, err, core.ErrInvocation)

	var pe *reply.ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Zero(t, f.models[GeneralAgentName].Calls())
}

func TestClassify_InvocationFailure(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].SetError(errors.New("provider unreachable"))

	_, err := f.run(t, "q")
	assert.ErrorIs(t, err, core.ErrInvocation)
	assert.NotErrorIs(t, err, core.ErrMalformedReply)
	assert.Equal(t, ClassifyTaskStepID, stepID(err))
}

func TestRoute_DispatchesOnTaskType(t *testing.T) {
	f := newFixture(t)

	marker := func(id string) workflow.Step {
		return workflow.NewStep(id, "", func(_ *workflow.RunContext, in Classification) (string, error) {
			return id + ":" + in.Query, nil
		})
	}
	route := NewRouteStep(marker("research"), marker("general"))

	for _, q := range []string{"", "x", "What is the capital of France?", "ünïcödé ✓", `{"taskType":"general"}`} {
		out, err := route.Execute(f.rc(), Classification{TaskType: TaskResearch, Query: q})
		require.NoError(t, err)
		assert.Equal(t, "research:"+q, out)

		out, err = route.Execute(f.rc(), Classification{TaskType: TaskGeneral, Query: q})
		require.NoError(t, err)
		assert.Equal(t, "general:"+q, out)
	}
}

func TestAgenticWorkflow_EmptyQueryReachesBothPaths(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText(`{"taskType":"research"}`, `{"taskType":"general"}`)
	f.models[PlannerAgentName].EnqueueText("- [ ] a")
	f.models[SupervisorAgentName].EnqueueText(`{"nextAgent":"web-scraper-agent","task":""}`)
	f.models[WebScraperAgentName].EnqueueText("nothing to search")
	f.models[GeneralAgentName].EnqueueText("ask me anything")

	res, err := f.run(t, "")
	require.NoError(t, err)
	assert.Equal(t, ResearchResult{Result: "nothing to search"}, res.Output)
	assert.Equal(t, "", model.LastUserText(f.models[PlannerAgentName].Requests()[0]))
	assert.Equal(t, "", model.LastUserText(f.models[WebScraperAgentName].Requests()[0]))

	res, err = f.run(t, "")
	require.NoError(t, err)
	assert.Equal(t, GeneralAnswer{Answer: "ask me anything"}, res.Output)
	assert.Equal(t, 1, f.models[PlannerAgentName].Calls())
}

func TestRoute_UnmatchedTaskType(t *testing.T) {
	f := newFixture(t)

	_, err := NewRouteStep(NewDoResearchStep(), NewGeneralStep()).Execute(f.rc(), Classification{TaskType: "coding", Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnmatchedBranch)
	assert.Zero(t, f.models[GeneralAgentName].Calls())
	assert.Zero(t, f.models[PlannerAgentName].Calls())
}

func TestScrape_SendsExactTask(t *testing.T) {
	f := newFixture(t)
	scraper := f.models[WebScraperAgentName]
	scraper.EnqueueText("found X", "found Y")

	out, err := NewScrapeStep().Execute(f.rc(), RoutingDecision{NextAgent: NextWebScraper, Task: "find X"})
	require.NoError(t, err)
	assert.Equal(t, ResearchResult{Result: "found X"}, out)

	// The reporting route is declared but still served by the scraper.
	out, err = NewScrapeStep().Execute(f.rc(), map[string]any{"nextAgent": "reporting-agent", "task": "summarize Y"})
	require.NoError(t, err)
	assert.Equal(t, ResearchResult{Result: "found Y"}, out)

	reqs := scraper.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "find X", model.LastUserText(reqs[0]))
	assert.Equal(t, "summarize Y", model.LastUserText(reqs[1]))
}

func TestScrape_RejectsInvalidDecision(t *testing.T) {
	f := newFixture(t)

	_, err := NewScrapeStep().Execute(f.rc(), map[string]any{"nextAgent": "coder-agent", "task": "x"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Zero(t, f.models[WebScraperAgentName].Calls())
}

func TestSupervisor_MalformedDecision(t *testing.T) {
	f := newFixture(t)
	f.models[SupervisorAgentName].EnqueueText(`{"nextAgent":"web-scrapper-agent","task":"x"}`)

	_, err := NewSupervisorStep().Execute(f.rc(), Plan{Result: "- [ ] x"})
	assert.ErrorIs(t, err, core.ErrMalformedReply)
}

func TestAgenticWorkflow_GeneralScenario(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText(`{"taskType":"general"}`)
	f.models[GeneralAgentName].EnqueueText("Paris is the capital of France.")

	res, err := f.run(t, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, GeneralAnswer{Answer: "Paris is the capital of France."}, res.Output)
	assert.Equal(t, "conv-1", res.ConversationID)

	assert.Equal(t, "What is the capital of France?", model.LastUserText(f.models[GeneralAgentName].Requests()[0]))
	assert.Zero(t, f.models[PlannerAgentName].Calls())
	assert.Zero(t, f.models[SupervisorAgentName].Calls())
	assert.Zero(t, f.models[WebScraperAgentName].Calls())
}

func TestAgenticWorkflow_ResearchScenario(t *testing.T) {
	f := newFixture(t)

	plan := "Title: Quantum computing trends\n- [ ] Search quantum computing trends\n- [ ] Summarize findings"

	f.models[ClassifierAgentName].EnqueueText("```json\n{\"taskType\":\"research\"}\n```")
	f.models[PlannerAgentName].Enqueue(
		testutil.ToolCallResponse("wm-1", tool.WorkingMemoryToolName, map[string]any{"memory": "# Todo list\n\n" + plan}),
		testutil.TextResponse(plan),
	)
	f.models[SupervisorAgentName].EnqueueText(`{"nextAgent":"web-scraper-agent","task":"search quantum computing trends"}`)
	f.models[WebScraperAgentName].EnqueueText("Error correction and logical qubits lead the field.")

	res, err := f.run(t, "Research the latest trends in quantum computing")
	require.NoError(t, err)
	assert.Equal(t, ResearchResult{Result: "Error correction and logical qubits lead the field."}, res.Output)

	assert.Equal(t, "Research the latest trends in quantum computing", model.LastUserText(f.models[PlannerAgentName].Requests()[0]))

	supReqs := f.models[SupervisorAgentName].Requests()
	require.Len(t, supReqs, 1)
	assert.Equal(t, plan, model.LastUserText(supReqs[0]))
	assert.Contains(t, supReqs[0].Instructions, "- [ ] Search quantum computing trends")

	scrReqs := f.models[WebScraperAgentName].Requests()
	require.Len(t, scrReqs, 1)
	assert.Equal(t, "search quantum computing trends", model.LastUserText(scrReqs[0]))

	assert.Zero(t, f.models[GeneralAgentName].Calls())

	th, err := f.store.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Contains(t, th.WorkingMemory, "Quantum computing trends")
}

func TestAgenticWorkflow_ResearchStepFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.models[ClassifierAgentName].EnqueueText(`{"taskType":"research"}`)
	f.models[PlannerAgentName].EnqueueText("- [ ] a")
	f.models[SupervisorAgentName].EnqueueText("next: scraper")

	_, err := f.run(t, "dig in")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedReply)
	assert.Zero(t, f.models[WebScraperAgentName].Calls())
}

func TestRun_UnknownWorkflowFailsBeforeAnyStep(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Run(context.Background(), "agentic-workflow-v2", Query{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownWorkflow)
	assert.ErrorIs(t, err, core.ErrNotRegistered)

	for name, m := range f.models {
		assert.Zero(t, m.Calls(), name)
	}
}

func TestDoResearch_MissingResearchWorkflow(t *testing.T) {
	e := engine.New()
	rc := workflow.NewRunContext(context.Background(), e)

	_, err := NewDoResearchStep().Execute(rc, Classification{TaskType: TaskResearch, Query: "q"})
	assert.ErrorIs(t, err, core.ErrUnknownWorkflow)
}
