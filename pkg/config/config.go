// Package config loads the engine configuration. Values come from a YAML
// file with environment variable overrides; secrets (database password,
// LLM API key) only come from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/geoatlas/geoquery-engine/pkg/llm"
	"github.com/geoatlas/geoquery-engine/pkg/nlq"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// Config holds all configuration for the query engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Spatial database configuration (PostGIS)
	Database DatabaseConfig `yaml:"database"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostGIS connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"geodata"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"PGMAX_CONNS" env-default:"10"`
}

// LLMConfig selects and configures the synthesis model.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
}

// PipelineConfig tunes the synthesis and retry behavior.
type PipelineConfig struct {
	MaxAttempts      int           `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"4"`
	RowLimit         int           `yaml:"row_limit" env:"PIPELINE_ROW_LIMIT" env-default:"10000"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout" env:"PIPELINE_SYNTHESIS_TIMEOUT" env-default:"60s"`
	ExecutionTimeout time.Duration `yaml:"execution_timeout" env:"PIPELINE_EXECUTION_TIMEOUT" env-default:"30s"`
	// WildcardExclusions lists columns whose filter values are never
	// wrapped in wildcards during repair.
	WildcardExclusions []string `yaml:"wildcard_exclusions" env:"PIPELINE_WILDCARD_EXCLUSIONS" env-separator:","`
	// SampleLimit caps distinct values sampled per column at catalog load.
	SampleLimit int `yaml:"sample_limit" env:"CATALOG_SAMPLE_LIMIT" env-default:"20"`
}

// Load reads configuration from the given YAML file with environment
// overrides. A missing file is not an error; the environment alone is used.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline max_attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.RowLimit < 1 {
		return fmt.Errorf("pipeline row_limit must be at least 1, got %d", c.Pipeline.RowLimit)
	}
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic, "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

// SpatialDB converts the database section to the adapter's config.
func (c *Config) SpatialDB() *spatialdb.Config {
	return &spatialdb.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Database,
		SSLMode:  c.Database.SSLMode,
		MaxConns: c.Database.MaxConns,
	}
}

// LLMFactory converts the llm section to the provider factory's config.
func (c *Config) LLMFactory() *llm.FactoryConfig {
	return &llm.FactoryConfig{
		Provider: c.LLM.Provider,
		Endpoint: c.LLM.Endpoint,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
	}
}

// PipelineSettings converts the pipeline section to the pipeline's config.
func (c *Config) PipelineSettings() nlq.Config {
	return nlq.Config{
		MaxAttempts:        c.Pipeline.MaxAttempts,
		RowLimit:           c.Pipeline.RowLimit,
		SynthesisTimeout:   c.Pipeline.SynthesisTimeout,
		ExecutionTimeout:   c.Pipeline.ExecutionTimeout,
		WildcardExclusions: c.Pipeline.WildcardExclusions,
	}
}
