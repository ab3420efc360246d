package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"medcase/internal/config"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
)

// NewFromConfig construye el cliente segun LLM_PROVIDER. Devuelve nil, nil cuando no
// hay proveedor configurado; los servicios caen entonces a sus respuestas por reglas.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (LLMClient, error) {
	var client LLMClient
	switch cfg.LLMProvider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		client = NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, orDefault(cfg.LLMModel, defaultOpenAIModel), logger)
	case config.ProviderAnthropic:
		ac, err := NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMBaseURL, orDefault(cfg.LLMModel, defaultAnthropicModel))
		if err != nil {
			return nil, err
		}
		client = ac
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	return WithRetry(client, 2, 500*time.Millisecond), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
