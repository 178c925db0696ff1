package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/model"
	"github.com/hupe1980/beanmesh/tool"
	"github.com/hupe1980/beanmesh/workflow"
)

// Workflow ids.
const (
	AgenticWorkflowID  = "agentic-workflow"
	ResearchWorkflowID = "research-workflow"
)

// ErrNoModel is returned when an agent has no model to run on.
var ErrNoModel = errors.New("no model configured")

// Registrar accepts agents and workflows. Both *engine.Engine and
// *beanmesh.BeanMesh satisfy it.
type Registrar interface {
	RegisterAgent(a *agent.Agent) error
	RegisterWorkflow(w *workflow.Workflow) error
}

// Deps are the collaborators of the dispatch agents.
type Deps struct {
	// Model backs every agent without an entry in Models.
	Model model.Model
	// Models overrides the model per agent name.
	Models map[string]model.Model
	// Store enables conversation memory for all agents. Planner and
	// supervisor share the conversation's working memory.
	Store core.MemoryStore
	// Gateway provides the web scraper's tools.
	Gateway tool.Gateway
	// LastMessages bounds the stored history sent per call (0 keeps the
	// agent default).
	LastMessages int
	// MaxSteps bounds model calls per agent generation (0 keeps the default).
	MaxSteps int
	Logger   logging.Logger
}

// NewAgents builds the five dispatch agents.
func NewAgents(ctx context.Context, deps Deps) ([]*agent.Agent, error) {
	var scraperTools []tool.Tool
	if deps.Gateway != nil {
		tools, err := deps.Gateway.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover tools: %w", err)
		}
		scraperTools = tools
	}

	logger := logging.OrNoOp(deps.Logger)

	cfgs := agentConfigs(scraperTools)
	agents := make([]*agent.Agent, 0, len(cfgs))
	for _, cfg := range cfgs {
		llm := deps.Model
		if m, ok := deps.Models[cfg.name]; ok && m != nil {
			llm = m
		}
		if llm == nil {
			return nil, fmt.Errorf("agent %q: %w", cfg.name, ErrNoModel)
		}
		agents = append(agents, newAgent(cfg, llm, deps, logger))
	}

	return agents, nil
}

// NewResearchWorkflow builds research-workflow: plan, route, scrape.
func NewResearchWorkflow() (*workflow.Workflow, error) {
	return workflow.New[Query, ResearchResult](ResearchWorkflowID, "A multi-agent workflow designed to perform query-driven research.").
		Then(NewWritePlanStep()).
		Then(NewSupervisorStep()).
		Then(NewScrapeStep()).
		Commit()
}

// NewAgenticWorkflow builds agentic-workflow: classify, then answer directly
// or research. Its output is a GeneralAnswer or a ResearchResult.
func NewAgenticWorkflow() (*workflow.Workflow, error) {
	return workflow.New[Query, any](AgenticWorkflowID, "A workflow that integrates multiple agents to handle complex tasks.").
		Then(NewClassifyStep()).
		Branch(NewRouteStep(NewDoResearchStep(), NewGeneralStep())).
		Commit()
}

// Register builds and registers all dispatch agents and both workflows. It
// stops at the first failure.
func Register(ctx context.Context, r Registrar, deps Deps) error {
	agents, err := NewAgents(ctx, deps)
	if err != nil {
		return err
	}
	for _, a := range agents {
		if err := r.RegisterAgent(a); err != nil {
			return err
		}
	}

	for _, build := range []func() (*workflow.Workflow, error){NewResearchWorkflow, NewAgenticWorkflow} {
		wf, err := build()
		if err != nil {
			return err
		}
		if err := r.RegisterWorkflow(wf); err != nil {
			return err
		}
	}

	logging.OrNoOp(deps.Logger).Info("dispatch.registered", "agents", len(agents), "workflows", 2)

	return nil
}
