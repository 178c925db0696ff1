// Package model defines the provider-agnostic completion boundary used by
// agents.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic mocking for tests (MockModel)
//
// Providers (OpenAI compatible endpoints such as DeepSeek, Anthropic) live in
// sub-packages and implement Model so agents stay decoupled from vendor SDKs.
package model
