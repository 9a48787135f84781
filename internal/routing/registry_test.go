package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/adapters/ai"
	"foreman/pkg/errors"
)

func testCatalog() []ModelDescriptor {
	return []ModelDescriptor{
		{
			ID:               "vision-pro",
			Provider:         ai.ProviderNameOpenAI,
			Capabilities:     []Capability{CapabilityText, CapabilityVision},
			MaxContextTokens: 128000,
			MaxOutputTokens:  4096,
			CostPer1KInput:   0.0025,
			CostPer1KOutput:  0.01,
			Priority:         PriorityPrimary,
			Timeout:          30 * time.Second,
			QualityScore:     0.95,
			SpeedScore:       0.7,
		},
		{
			ID:               "fast-mini",
			Provider:         ai.ProviderNameOpenAI,
			Capabilities:     []Capability{CapabilityText, CapabilityVision, CapabilitySpeed},
			MaxContextTokens: 128000,
			MaxOutputTokens:  4096,
			CostPer1KInput:   0.00015,
			CostPer1KOutput:  0.0006,
			Priority:         PrioritySecondary,
			Timeout:          15 * time.Second,
			QualityScore:     0.8,
			SpeedScore:       0.9,
		},
		{
			ID:               "thinker",
			Provider:         ai.ProviderNameDeepSeek,
			Capabilities:     []Capability{CapabilityText, CapabilityReasoning},
			MaxContextTokens: 64000,
			MaxOutputTokens:  8192,
			CostPer1KInput:   0.00055,
			CostPer1KOutput:  0.00219,
			Priority:         PrioritySecondary,
			Timeout:          60 * time.Second,
			QualityScore:     0.9,
			SpeedScore:       0.3,
		},
		{
			ID:               "local-llama",
			Provider:         ai.ProviderNameOllama,
			Capabilities:     []Capability{CapabilityText, CapabilitySpeed},
			MaxContextTokens: 8192,
			MaxOutputTokens:  4096,
			Priority:         PriorityEmergency,
			Timeout:          60 * time.Second,
			QualityScore:     0.4,
			SpeedScore:       0.5,
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(testCatalog())
	require.NoError(t, err)
	return registry
}

func TestRegistryEstimateCost(t *testing.T) {
	registry := newTestRegistry(t)

	cost := registry.EstimateCost("vision-pro", 2000, 500)
	assert.InDelta(t, (2000.0/1000)*0.0025+(500.0/1000)*0.01, cost, 1e-9)

	assert.Zero(t, registry.EstimateCost("vision-pro", 0, 0))
}

func TestRegistryUnknownModelDefaults(t *testing.T) {
	registry := newTestRegistry(t)

	// Unknown ids never error: zero cost, mid-range priors.
	assert.Zero(t, registry.EstimateCost("ghost", 1000, 1000))
	assert.Equal(t, 0.5, registry.QualityScore("ghost"))
	assert.Equal(t, 0.5, registry.SpeedScore("ghost"))
	assert.Equal(t, PriorityTertiary, registry.Priority("ghost"))
	assert.Equal(t, defaultModelTimeout, registry.Timeout("ghost"))
}

func TestRegistryCapabilityIndex(t *testing.T) {
	registry := newTestRegistry(t)

	vision := registry.ModelsFor(CapabilityVision)
	require.Len(t, vision, 2)
	for _, d := range vision {
		assert.True(t, d.Supports(CapabilityVision))
	}

	assert.Empty(t, registry.ModelsFor(CapabilityTranslation))
}

func TestRegistryEmergencyModels(t *testing.T) {
	registry := newTestRegistry(t)

	emergency := registry.Emergency()
	require.Len(t, emergency, 1)
	assert.Equal(t, "local-llama", emergency[0].ID)
}

func TestRegistryRejectsInvalidCatalog(t *testing.T) {
	_, err := NewRegistry([]ModelDescriptor{{ID: "a"}, {ID: "a"}})
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))

	_, err = NewRegistry([]ModelDescriptor{{ID: "neg", CostPer1KInput: -1}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewRegistry([]ModelDescriptor{{}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestDefaultCatalogLoads(t *testing.T) {
	registry, err := NewRegistry(DefaultCatalog())
	require.NoError(t, err)
	assert.NotZero(t, registry.Len())
	assert.NotEmpty(t, registry.ModelsFor(CapabilityVision))
	assert.NotEmpty(t, registry.Emergency())
}
