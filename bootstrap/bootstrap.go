// Package bootstrap assembles a ready to run beanmesh instance from
// configuration: logger, model, memory store, web tools and the dispatch
// agents and workflows.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/beanmesh"
	"github.com/hupe1980/beanmesh/config"
	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/dispatch"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/memory"
	"github.com/hupe1980/beanmesh/memory/sqlite"
	"github.com/hupe1980/beanmesh/model"
	anthropicmodel "github.com/hupe1980/beanmesh/model/anthropic"
	openaimodel "github.com/hupe1980/beanmesh/model/openai"
	"github.com/hupe1980/beanmesh/tool/web"
)

// ErrUnknownProvider is returned for a model provider without an adapter.
var ErrUnknownProvider = errors.New("unknown model provider")

// Options overrides collaborators built from configuration.
type Options struct {
	// Logger replaces the configured zerolog logger.
	Logger logging.Logger
	// Model replaces the configured provider for all agents.
	Model model.Model
	// HTTPClient is used by the web tools.
	HTTPClient *http.Client
	// TavilyEndpoint overrides the search URL.
	TavilyEndpoint string
}

// App is an assembled beanmesh instance.
type App struct {
	Config *config.Config
	Mesh   *beanmesh.BeanMesh
	Logger logging.Logger

	closers []func() error
}

// New builds the App described by cfg.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*App, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(cfg.Log)
	}

	llm := opts.Model
	if llm == nil {
		m, err := NewModel(cfg.Model)
		if err != nil {
			return nil, err
		}
		llm = m
	}

	store, closeStore, err := NewStore(cfg.Memory)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	app.Mesh = beanmesh.New(func(o *beanmesh.Options) {
		o.EngineConfig = engine.Config{
			MaxConcurrentRuns:      cfg.Engine.MaxConcurrentRuns,
			SerializeConversations: cfg.Engine.SerializeConversations,
		}
		o.MemoryStore = store
		o.Logger = logger
	})

	gateway := web.NewGateway(web.Config{
		TavilyAPIKey:      cfg.Web.TavilyAPIKey,
		Depth:             cfg.Web.Depth,
		MaxResults:        cfg.Web.MaxResults,
		RequestsPerSecond: cfg.Web.RequestsPerSecond,
		TavilyEndpoint:    opts.TavilyEndpoint,
		HTTPClient:        opts.HTTPClient,
		Logger:            logger,
	})

	err = dispatch.Register(ctx, app.Mesh, dispatch.Deps{
		Model:        llm,
		Store:        store,
		Gateway:      gateway,
		LastMessages: cfg.Memory.LastMessages,
		MaxSteps:     cfg.Model.MaxSteps,
		Logger:       logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("register dispatch: %w", err)
	}

	logger.Info(
		"bootstrap.ready",
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
		"memory", cfg.Memory.Backend,
		"web_search", cfg.Web.TavilyAPIKey != "",
	)

	return app, nil
}

// Close releases the memory store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewModel builds the provider adapter for cfg.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek:
		return openaimodel.NewDeepSeek(cfg.APIKey, func(o *openaimodel.Options) {
			o.Model = cfg.Name
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
		}), nil
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = cfg.Name
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.Name)
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

// NewStore opens the configured memory store. The returned close function is
// nil for stores without resources.
func NewStore(cfg config.MemoryConfig) (core.MemoryStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewInMemoryStore(), nil, nil
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite memory %q: %w", cfg.Path, err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
}
