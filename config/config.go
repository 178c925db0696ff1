// Package config loads the process configuration from the environment.
//
// Variables use the BEANMESH prefix and the section name, for example
// BEANMESH_MODEL_PROVIDER or BEANMESH_MEMORY_PATH. An optional .env file is
// exported to the environment first; variables already set win over the
// file. Provider keys also fall back to the conventional unprefixed names
// (DEEPSEEK_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, TAVILY_API_KEY).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/hupe1980/beanmesh/logging"
)

// Prefix of all environment variables.
const Prefix = "BEANMESH"

// DefaultEnvFile is exported when present and no explicit file is given.
const DefaultEnvFile = ".env"

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Model providers.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Memory backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is the complete process configuration.
type Config struct {
	Model  ModelConfig
	Memory MemoryConfig
	Web    WebConfig
	Log    logging.Config
	Engine EngineConfig
	Server ServerConfig
}

// ModelConfig selects the completion provider shared by all agents. An empty
// Name falls back to the provider's entry in DefaultModelNames.
type ModelConfig struct {
	Provider    string  `default:"deepseek" validate:"required,oneof=deepseek openai anthropic"`
	Name        string  `validate:"required"`
	BaseURL     string  `split_words:"true" validate:"omitempty,url"`
	APIKey      string  `split_words:"true" validate:"required"`
	Temperature float64 `default:"0.7" validate:"min=0,max=2"`
	MaxTokens   int64   `split_words:"true" default:"4096" validate:"min=1"`
	// MaxSteps bounds model calls per agent generation.
	MaxSteps int `split_words:"true" default:"5" validate:"min=1,max=50"`
}

// MemoryConfig selects the conversation store.
type MemoryConfig struct {
	Backend      string `default:"sqlite" validate:"required,oneof=memory sqlite"`
	Path         string `default:"memory.db" validate:"required_if=Backend sqlite"`
	LastMessages int    `split_words:"true" default:"10" validate:"min=0"`
}

// WebConfig configures the web scraper's tools.
type WebConfig struct {
	// TavilyAPIKey enables web search. Without it only URL fetching is offered.
	TavilyAPIKey      string  `split_words:"true"`
	Depth             string  `default:"basic" validate:"oneof=basic advanced"`
	MaxResults        int     `split_words:"true" default:"5" validate:"min=1,max=20"`
	RequestsPerSecond float64 `split_words:"true" default:"1" validate:"min=0"`
}

// EngineConfig tunes workflow runs.
type EngineConfig struct {
	MaxConcurrentRuns      int  `split_words:"true" default:"10" validate:"min=0"`
	SerializeConversations bool `split_words:"true" default:"false"`
	// RunTimeout bounds one run started from the CLI or server (0 = none).
	RunTimeout time.Duration `split_words:"true" default:"0s" validate:"min=0"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s" validate:"min=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load exports envFile (or DefaultEnvFile when it exists and envFile is
// empty), then processes and validates the environment.
func Load(envFile string) (*Config, error) {
	envFile = strings.TrimSpace(envFile)
	if envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("load default env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks all struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// DefaultModelNames are used when no model name is configured.
var DefaultModelNames = map[string]string{
	ProviderDeepSeek:  "deepseek-chat",
	ProviderOpenAI:    "gpt-4o",
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

var providerKeyEnv = map[string]string{
	ProviderDeepSeek:  "DEEPSEEK_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func (c *Config) applyFallbacks() {
	if c.Model.Name == "" {
		c.Model.Name = DefaultModelNames[c.Model.Provider]
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = os.Getenv(providerKeyEnv[c.Model.Provider])
	}
	if c.Web.TavilyAPIKey == "" {
		c.Web.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
