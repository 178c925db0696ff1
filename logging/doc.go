// Package logging provides a minimal logging interface and adapters for beanmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that the engine, workflows and agents use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZerologAdapter plus New, the default process logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(logging.Config{Debug: true, PrettyFormat: true})
//	eng := engine.New(func(o *engine.Options) { o.Logger = logger })
//
// Messages are dotted event keys ("workflow.step.complete") followed by
// key/value pairs.
package logging
