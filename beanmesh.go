// Package beanmesh provides a high-level façade over the workflow engine and
// its services (memory store and logging). Most applications interact with
// this package by:
//  1. Creating a BeanMesh via New() (optionally overriding the in-memory store)
//  2. Registering agents and workflows (see the dispatch package for the
//     ready-made classification and research pipelines)
//  3. Running a workflow by id with Run
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. Defaults are safe for local development and
// testing; production deployments typically supply a durable memory store
// (memory/sqlite) and a structured logger.
package beanmesh

import (
	"context"

	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/memory"
	"github.com/hupe1980/beanmesh/workflow"
)

// Options configures the BeanMesh instance.
type Options struct {
	// EngineConfig tunes run concurrency.
	EngineConfig engine.Config

	// MemoryStore backs agent memory (defaults to an in-memory store).
	MemoryStore core.MemoryStore

	// Callbacks run around every workflow step.
	Callbacks []workflow.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// BeanMesh is the high-level façade aggregating the engine and services.
type BeanMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new BeanMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *BeanMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		MemoryStore:  memory.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &BeanMesh{opts: opts, engine: e}
}

// Engine exposes the underlying engine (registry and runs).
func (m *BeanMesh) Engine() *engine.Engine { return m.engine }

// MemoryStore returns the store agents should be configured with.
func (m *BeanMesh) MemoryStore() core.MemoryStore { return m.opts.MemoryStore }

// Logger returns the configured logger.
func (m *BeanMesh) Logger() logging.Logger { return m.opts.Logger }

// RegisterAgent adds an agent to the registry.
func (m *BeanMesh) RegisterAgent(a *agent.Agent) error { return m.engine.RegisterAgent(a) }

// RegisterWorkflow adds a workflow to the registry.
func (m *BeanMesh) RegisterWorkflow(w *workflow.Workflow) error { return m.engine.RegisterWorkflow(w) }

// Run executes a registered workflow; see engine.Engine.Run.
func (m *BeanMesh) Run(
	ctx context.Context,
	workflowID string,
	input any,
	optFns ...func(o *engine.RunOptions),
) (*engine.RunResult, error) {
	return m.engine.Run(ctx, workflowID, input, optFns...)
}
