package ai

import "time"

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameOpenAI   ProviderName = "openai"
	ProviderNameDeepSeek ProviderName = "deepseek"
	ProviderNameGroq     ProviderName = "groq"
	ProviderNameOllama   ProviderName = "ollama"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameOpenAI, ProviderNameDeepSeek, ProviderNameGroq, ProviderNameOllama:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameOpenAI,
		ProviderNameDeepSeek,
		ProviderNameGroq,
		ProviderNameOllama,
	}
}

func defaultTimeout() time.Duration {
	return 60 * time.Second
}
