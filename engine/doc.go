// Package engine implements the orchestration layer: the process-wide
// registry binding named agents and workflows, and the Run entry point that
// dispatches workflow executions.
//
// # Core Responsibilities
//
// Registry:
//   - Thread-safe agent and workflow registration with exact-name lookup
//   - Duplicate names are rejected; unknown names fail with
//     core.ErrUnknownAgent / core.ErrUnknownWorkflow
//
// Run Orchestration:
//   - Resolves the workflow before any step executes
//   - Assigns run and conversation ids; an in-flight run id cannot be reused
//   - Bounded concurrency (MaxConcurrentRuns) and cancellation by run id
//   - Optional per-conversation serialization of runs; queued runs hold no
//     slot and stay cancellable
//   - Step lifecycle callbacks (see workflow.Callback)
//
// # Usage
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Logger = logger
//	    o.Config.MaxConcurrentRuns = 50
//	})
//
//	_ = eng.RegisterAgent(agent.New("general-agent", llm))
//	_ = eng.RegisterWorkflow(wf)
//
//	res, err := eng.Run(ctx, "agentic-workflow", map[string]any{"query": "..."})
//
// # Concurrency Model
//
// Registration is expected at startup; lookups and runs are safe for
// concurrent use. Independent runs execute concurrently. Runs sharing a
// conversation id share its memory entries and race on the working-memory
// document (last write wins) unless SerializeConversations is set.
package engine
