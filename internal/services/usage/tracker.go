package usage

import (
	"sort"
	"sync"
)

// Tracker aggregates in-process token and cost totals per model.
// It feeds the usage report endpoint; durable per-user accounting lives
// in the Redis-backed spend cache.
type Tracker struct {
	mu     sync.RWMutex
	models map[string]*ModelUsage
}

// ModelUsage holds accumulated usage for one model.
type ModelUsage struct {
	Model        string  `json:"model"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	Requests     int64   `json:"requests"`
	CacheHits    int64   `json:"cache_hits"`
}

// NewTracker creates an empty usage tracker.
func NewTracker() *Tracker {
	return &Tracker{models: make(map[string]*ModelUsage)}
}

// Record accumulates one completion's usage under its model.
func (t *Tracker) Record(model string, inputTokens, outputTokens int, costUSD float64, cached bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mu, ok := t.models[model]
	if !ok {
		mu = &ModelUsage{Model: model}
		t.models[model] = mu
	}

	mu.Requests++
	if cached {
		mu.CacheHits++
		return
	}

	mu.InputTokens += int64(inputTokens)
	mu.OutputTokens += int64(outputTokens)
	mu.TotalCostUSD += costUSD
}

// Usage returns accumulated usage for one model.
func (t *Tracker) Usage(model string) (ModelUsage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	mu, ok := t.models[model]
	if !ok {
		return ModelUsage{}, false
	}
	return *mu, true
}

// AllUsage returns usage for every model, sorted by model id.
func (t *Tracker) AllUsage() []ModelUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ModelUsage, 0, len(t.models))
	for _, mu := range t.models {
		out = append(out, *mu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// TotalCost returns the total cost across all models.
func (t *Tracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, mu := range t.models {
		total += mu.TotalCostUSD
	}
	return total
}

// Reset clears all accumulated usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.models = make(map[string]*ModelUsage)
}
