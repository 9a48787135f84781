package ai

import (
	"foreman/internal/adapters/config"
)

// BuildDispatcher initializes a Dispatcher with all enabled providers based
// on configuration. A provider is enabled when its API key is set; Ollama
// needs no key and is always registered as the local fallback endpoint.
func BuildDispatcher(cfg config.LLMConfig) (*Dispatcher, error) {
	dispatcher := NewDispatcher()

	register := func(name ProviderName, baseURL string, apiKey string) error {
		limiter := NewTokenBucketLimiter(name, cfg.RequestsPerMin, cfg.RateBurst)
		return dispatcher.Register(NewClient(name, baseURL, apiKey, limiter))
	}

	if cfg.OpenAIKey != "" {
		if err := register(ProviderNameOpenAI, cfg.OpenAIBaseURL, cfg.OpenAIKey); err != nil {
			return nil, err
		}
	}

	if cfg.DeepSeekKey != "" {
		if err := register(ProviderNameDeepSeek, cfg.DeepSeekURL, cfg.DeepSeekKey); err != nil {
			return nil, err
		}
	}

	if cfg.GroqKey != "" {
		if err := register(ProviderNameGroq, cfg.GroqBaseURL, cfg.GroqKey); err != nil {
			return nil, err
		}
	}

	if err := register(ProviderNameOllama, cfg.OllamaBaseURL, ""); err != nil {
		return nil, err
	}

	return dispatcher, nil
}
