// Package workflow composes typed steps into runnable workflows.
//
// A Step declares input and output shapes (JSON schemas derived from Go
// types) and executes against a RunContext that exposes agent and workflow
// lookup. A Workflow runs its steps strictly in order, feeding each output to
// the next step; the first failing step aborts the run. Branch steps select
// exactly one case by key and fail with ErrUnmatchedBranch when none matches.
// A Workflow is itself a Step, so workflows nest.
//
// Typical construction:
//
//	classify := workflow.NewStep("classify-task", "Classify the query", classifyFn)
//	route := workflow.NewBranch("route", selectTaskType,
//	    workflow.When(TaskResearch, research),
//	    workflow.When(TaskGeneral, general),
//	)
//	wf, err := workflow.New[Query, any]("agentic-workflow", "Dispatch a query").
//	    Then(classify).
//	    Branch(route).
//	    Commit()
package workflow
