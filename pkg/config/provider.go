package config

import (
	"fmt"
	"os"

	"github.com/entrhq/pilot/pkg/llm/openai"
)

// BuildProvider creates the LLM provider, resolving settings by
// precedence: CLI flags > environment variables > config file >
// defaults.
func BuildProvider(cfg *Config, cliModel, cliBaseURL, cliAPIKey string) (*openai.Provider, error) {
	model := cliModel
	baseURL := cliBaseURL
	apiKey := cliAPIKey

	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if model == "" {
		model = cfg.LLM.Model
	}
	if baseURL == "" {
		baseURL = cfg.LLM.BaseURL
	}
	if apiKey == "" {
		apiKey = cfg.LLM.APIKey
	}

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required: set OPENAI_API_KEY, use -api-key, or add llm.api_key to ~/.pilot/config.yaml")
	}

	opts := []openai.ProviderOption{
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if cfg.LLM.MaxContextTokens > 0 {
		opts = append(opts, openai.WithMaxContextTokens(cfg.LLM.MaxContextTokens))
	}

	provider, err := openai.NewProvider(apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return provider, nil
}
