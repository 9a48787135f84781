package routing

import (
	"context"
	"time"

	"foreman/internal/adapters/ai"
)

// HealthReport summarizes the routing core's current state.
type HealthReport struct {
	Status                   string `json:"status"` // "healthy" or "unhealthy"
	ProbeModel               string `json:"probe_model"`
	ModelsAvailable          int    `json:"models_available"`
	CircuitBreakersOpen      int    `json:"circuit_breakers_open"`
	CacheSize                int    `json:"cache_size"`
	PerformanceTrackedModels int    `json:"performance_tracked_models"`
	Error                    string `json:"error,omitempty"`
}

const healthProbeTimeout = 15 * time.Second

// HealthCheck issues a minimal completion against the cheapest available
// model and reports core state. It goes through the transport directly so
// probes never pollute the response cache or the fallback statistics.
func (r *Router) HealthCheck(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:                   "healthy",
		ModelsAvailable:          r.registry.Len(),
		CircuitBreakersOpen:      r.breaker.OpenCount(),
		CacheSize:                r.cache.Len(),
		PerformanceTrackedModels: r.perf.TrackedModels(),
	}

	probe := r.probeTarget()
	report.ProbeModel = probe.ID

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	_, err := r.transport.Chat(probeCtx, ai.ChatRequest{
		Model:     probe.ID,
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: "ping"}},
		MaxTokens: 5,
	})
	if err != nil {
		report.Status = "unhealthy"
		report.Error = err.Error()
	}

	return report
}

// probeTarget prefers emergency models, then the cheapest cataloged model.
func (r *Router) probeTarget() ModelDescriptor {
	if emergency := r.registry.Emergency(); len(emergency) > 0 {
		return emergency[0]
	}

	var cheapest ModelDescriptor
	found := false
	for _, d := range r.registry.All() {
		if !found || d.CostPer1KInput < cheapest.CostPer1KInput {
			cheapest = d
			found = true
		}
	}
	if found {
		return cheapest
	}
	return r.defaultModel()
}
