package dispatch

import (
	"fmt"

	"github.com/hupe1980/beanmesh/reply"
	"github.com/hupe1980/beanmesh/workflow"
)

// Step ids.
const (
	ClassifyTaskStepID   = "classify-task"
	RouteTaskStepID      = "route-task"
	GeneralStepID        = "handle-general-enquire"
	DoResearchStepID     = "do-research"
	WritePlanStepID      = "write-plan"
	SupervisorStepID     = "supervisor-agent-step"
	ScrapeWebsitesStepID = "scrape-websites"
)

// NewClassifyStep asks the classifier agent for the task type of the query.
// Replies that are not a JSON object with a known taskType fail with
// core.ErrMalformedReply.
func NewClassifyStep() workflow.Step {
	return workflow.NewStep(ClassifyTaskStepID, "Analyze the user query to determine the nature of the task.",
		func(rc *workflow.RunContext, in Query) (Classification, error) {
			text, err := rc.Generate(ClassifierAgentName, in.Query)
			if err != nil {
				return Classification{}, err
			}

			r, err := reply.As[classifierReply](text)
			if err != nil {
				return Classification{}, fmt.Errorf("%s: %w", ClassifierAgentName, err)
			}

			rc.LogInfo("dispatch.classified", "task_type", string(r.TaskType))

			return Classification{TaskType: r.TaskType, Query: in.Query}, nil
		})
}

// NewGeneralStep answers the query with the general agent. The prose reply is
// the final answer.
func NewGeneralStep() workflow.Step {
	return workflow.NewStep(GeneralStepID, "Respond to simple or general-purpose queries.",
		func(rc *workflow.RunContext, in Classification) (GeneralAnswer, error) {
			text, err := rc.Generate(GeneralAgentName, in.Query)
			if err != nil {
				return GeneralAnswer{}, err
			}
			return GeneralAnswer{Answer: text}, nil
		})
}

// NewDoResearchStep runs the registered research workflow for the query
// within the same run.
func NewDoResearchStep() workflow.Step {
	return workflow.NewStep(DoResearchStepID, "Perform research based on the plan created.",
		func(rc *workflow.RunContext, in Classification) (ResearchResult, error) {
			wf, err := rc.Workflow(ResearchWorkflowID)
			if err != nil {
				return ResearchResult{}, err
			}

			out, err := wf.Execute(rc, Query{Query: in.Query})
			if err != nil {
				return ResearchResult{}, err
			}

			return workflow.Coerce[ResearchResult](out)
		})
}

// NewRouteStep dispatches on the task type. Research is matched first; a task
// type without a case fails with core.ErrUnmatchedBranch.
func NewRouteStep(research, general workflow.Step) workflow.Step {
	return workflow.NewBranch(RouteTaskStepID,
		func(c Classification) TaskType { return c.TaskType },
		workflow.When(TaskResearch, research),
		workflow.When(TaskGeneral, general),
	)
}

// NewWritePlanStep asks the planner for a markdown TODO list and passes it on
// unparsed.
func NewWritePlanStep() workflow.Step {
	return workflow.NewStep(WritePlanStepID, "Breaks down the classified task into structured, actionable steps for downstream agents.",
		func(rc *workflow.RunContext, in Query) (Plan, error) {
			text, err := rc.Generate(PlannerAgentName, in.Query)
			if err != nil {
				return Plan{}, err
			}

			rc.LogDebug("dispatch.plan.written", "plan", text)

			return Plan{Result: text}, nil
		})
}

// NewSupervisorStep sends the plan to the supervisor and extracts its single
// routing decision.
func NewSupervisorStep() workflow.Step {
	return workflow.NewStep(SupervisorStepID, "Executes the supervisor agent for additional processing.",
		func(rc *workflow.RunContext, in Plan) (RoutingDecision, error) {
			text, err := rc.Generate(SupervisorAgentName, in.Result)
			if err != nil {
				return RoutingDecision{}, err
			}

			d, err := reply.As[RoutingDecision](text)
			if err != nil {
				return RoutingDecision{}, fmt.Errorf("%s: %w", SupervisorAgentName, err)
			}

			rc.LogInfo("dispatch.routed", "next_agent", string(d.NextAgent), "task", d.Task)

			return d, nil
		})
}

// NewScrapeStep hands the task to the web scraper agent, whatever agent the
// supervisor named.
func NewScrapeStep() workflow.Step {
	return workflow.NewStep(ScrapeWebsitesStepID, "Collects relevant information from the web based on the task assigned by the Supervisor Agent.",
		func(rc *workflow.RunContext, in RoutingDecision) (ResearchResult, error) {
			if in.NextAgent != NextWebScraper {
				rc.LogWarn("dispatch.route.unsupported", "next_agent", string(in.NextAgent), "using", WebScraperAgentName)
			}

			text, err := rc.Generate(WebScraperAgentName, in.Task)
			if err != nil {
				return ResearchResult{}, err
			}
			return ResearchResult{Result: text}, nil
		})
}
