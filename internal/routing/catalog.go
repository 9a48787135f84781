package routing

import (
	"time"

	"foreman/internal/adapters/ai"
)

// DefaultCatalog is the model lineup foreman ships with: vision models for
// site photo analysis, reasoning models for progress estimation, fast cheap
// models for chat turns, and a local zero-cost emergency backend.
func DefaultCatalog() []ModelDescriptor {
	return []ModelDescriptor{
		{
			ID:               "gpt-4o",
			Provider:         ai.ProviderNameOpenAI,
			Capabilities:     []Capability{CapabilityText, CapabilityVision, CapabilityCode, CapabilityReasoning, CapabilityCreative, CapabilitySummarization},
			MaxOutputTokens:  16384,
			MaxContextTokens: 128000,
			CostPer1KInput:   0.0025,
			CostPer1KOutput:  0.01,
			Priority:         PriorityPrimary,
			Timeout:          60 * time.Second,
			QualityScore:     0.95,
			SpeedScore:       0.7,
		},
		{
			ID:               "gpt-4o-mini",
			Provider:         ai.ProviderNameOpenAI,
			Capabilities:     []Capability{CapabilityText, CapabilityVision, CapabilitySpeed, CapabilitySummarization, CapabilityTranslation},
			MaxOutputTokens:  16384,
			MaxContextTokens: 128000,
			CostPer1KInput:   0.00015,
			CostPer1KOutput:  0.0006,
			Priority:         PrioritySecondary,
			Timeout:          30 * time.Second,
			QualityScore:     0.8,
			SpeedScore:       0.9,
		},
		{
			ID:               "deepseek-reasoner",
			Provider:         ai.ProviderNameDeepSeek,
			Capabilities:     []Capability{CapabilityText, CapabilityReasoning, CapabilityCode},
			MaxOutputTokens:  8192,
			MaxContextTokens: 64000,
			CostPer1KInput:   0.00055,
			CostPer1KOutput:  0.00219,
			Priority:         PrioritySecondary,
			Timeout:          120 * time.Second,
			QualityScore:     0.9,
			SpeedScore:       0.3,
		},
		{
			ID:               "deepseek-chat",
			Provider:         ai.ProviderNameDeepSeek,
			Capabilities:     []Capability{CapabilityText, CapabilityCode, CapabilitySummarization, CapabilityTranslation, CapabilityCreative},
			MaxOutputTokens:  8192,
			MaxContextTokens: 64000,
			CostPer1KInput:   0.00027,
			CostPer1KOutput:  0.0011,
			Priority:         PriorityTertiary,
			Timeout:          45 * time.Second,
			QualityScore:     0.75,
			SpeedScore:       0.6,
		},
		{
			ID:               "llama-3.3-70b-versatile",
			Provider:         ai.ProviderNameGroq,
			Capabilities:     []Capability{CapabilityText, CapabilitySpeed, CapabilitySummarization},
			MaxOutputTokens:  32768,
			MaxContextTokens: 128000,
			CostPer1KInput:   0.00059,
			CostPer1KOutput:  0.00079,
			Priority:         PriorityTertiary,
			Timeout:          20 * time.Second,
			QualityScore:     0.7,
			SpeedScore:       0.98,
		},
		{
			ID:               "llama3.2",
			Provider:         ai.ProviderNameOllama,
			Capabilities:     []Capability{CapabilityText, CapabilitySpeed},
			MaxOutputTokens:  4096,
			MaxContextTokens: 8192,
			CostPer1KInput:   0,
			CostPer1KOutput:  0,
			Priority:         PriorityEmergency,
			Timeout:          90 * time.Second,
			QualityScore:     0.4,
			SpeedScore:       0.5,
		},
		{
			ID:               "llama3.2-vision",
			Provider:         ai.ProviderNameOllama,
			Capabilities:     []Capability{CapabilityText, CapabilityVision},
			MaxOutputTokens:  4096,
			MaxContextTokens: 8192,
			CostPer1KInput:   0,
			CostPer1KOutput:  0,
			Priority:         PriorityEmergency,
			Timeout:          120 * time.Second,
			QualityScore:     0.35,
			SpeedScore:       0.4,
		},
	}
}
