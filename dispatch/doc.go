// Package dispatch wires the ready-made agents and workflows of beanmesh.
//
// The "agentic-workflow" classifies a query as general or research. General
// queries are answered directly by the general agent. Research queries run
// the nested "research-workflow": the planner writes a TODO list, the
// supervisor picks the next task and the web scraper executes it.
//
//	mesh := beanmesh.New()
//	if err := dispatch.Register(ctx, mesh, dispatch.Deps{Model: llm, Store: mesh.MemoryStore()}); err != nil {
//		return err
//	}
//	res, err := mesh.Run(ctx, dispatch.AgenticWorkflowID, dispatch.Query{Query: "What is the capital of France?"})
package dispatch
