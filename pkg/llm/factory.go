package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// FactoryConfig selects and configures an LLM provider.
type FactoryConfig struct {
	Provider string // "openai" (any OpenAI-compatible endpoint) or "anthropic"
	Endpoint string
	Model    string
	APIKey   string
}

// NewFromConfig creates an LLM client for the configured provider.
// "openai" covers any OpenAI-compatible endpoint (OpenAI, vLLM, Ollama).
func NewFromConfig(cfg *FactoryConfig, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewClient(&Config{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(&Config{
			Model:  cfg.Model,
			APIKey: cfg.APIKey,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, cfg.Provider)
	}
}
