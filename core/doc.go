// Package core provides the foundational domain types and interfaces shared by
// every beanmesh package:
//
//   - Content / Part (the role-tagged request shape exchanged with models)
//   - Message / Thread (persisted conversation turns + working memory)
//   - MemoryStore (conversation-scoped persistence boundary)
//   - ToolContext (scoped execution surface handed to tools)
//   - the error taxonomy surfaced by workflow runs
//
// Implementation concerns (storage backends, model adapters, orchestration)
// live in their own packages and depend on the small contracts defined here.
package core
