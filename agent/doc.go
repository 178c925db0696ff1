// Package agent implements the model backed agent: a named generator with a
// fixed instruction, optional conversation memory (history plus a
// working-memory document) and an optional tool set.
//
// Execution Model:
//   - Generate receives the turns to answer and an optional conversation id
//   - Stored history (when memory is enabled) is prepended to the turns
//   - Tool calls are executed and fed back until the model replies with text
//     or the step budget is exhausted
//   - The turns and the final reply are appended to the store afterwards
//
// An Agent holds no per-call state and is safe for concurrent use. Agents do
// not retry; every failure is surfaced as core.ErrInvocation.
package agent
