package routing

import (
	"foreman/internal/adapters/ai"
)

// Request is one completion call against the router. Model pins the request
// to a specific backend; when empty the router selects one from TaskType and
// message content.
type Request struct {
	Model    string
	TaskType TaskType
	Messages []ai.Message
	Options  Options
}

// HasImage reports whether any message carries image content.
func (r Request) HasImage() bool {
	for _, m := range r.Messages {
		if m.HasImage() {
			return true
		}
	}
	return false
}

// InputTokenEstimate approximates the prompt size from character counts
// (roughly 4 characters per token).
func (r Request) InputTokenEstimate() int {
	chars := 0
	for _, m := range r.Messages {
		chars += len(m.Text())
	}
	return chars / 4
}

// Options enumerates every recognized completion option. Unknown options do
// not exist at this boundary; callers that need a new knob add a field here.
type Options struct {
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Temperature      float64  `json:"temperature,omitempty"`
	TopP             float64  `json:"top_p,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
}

// Response is a completion plus routing metadata.
type Response struct {
	ID               string          `json:"id"`
	RequestID        string          `json:"request_id"`
	Content          string          `json:"content"`
	Usage            ai.Usage        `json:"usage"`
	ModelUsed        string          `json:"model_used"`
	Provider         ai.ProviderName `json:"provider"`
	FallbackAttempt  int             `json:"fallback_attempt"`
	LatencyMs        int64           `json:"latency_ms"`
	EstimatedCostUSD float64         `json:"estimated_cost_usd"`
	Cached           bool            `json:"cached"`
}
