// Package memory contains concrete core.MemoryStore implementations and the
// working-memory template used by planning agents.
//
// The store contract lives in the core package. Depend on core.MemoryStore in
// your code and select an implementation (InMemoryStore here, or the SQLite
// backed store in memory/sqlite) at wiring time.
package memory
