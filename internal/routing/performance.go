package routing

import (
	"sort"
	"sync"
	"time"
)

// PerformanceTracker keeps rolling latency and success statistics per model.
// It feeds observability endpoints only; routing decisions never read it.
type PerformanceTracker struct {
	mu     sync.Mutex
	window int
	models map[string]*modelPerf
}

type modelPerf struct {
	latencies []time.Duration // ring buffer, oldest overwritten
	next      int
	filled    bool
	successes int64
	failures  int64
}

// ModelStats is a reporting snapshot for one model.
type ModelStats struct {
	Model         string  `json:"model"`
	TotalRequests int64   `json:"total_requests"`
	SuccessRate   float64 `json:"success_rate"`
	FailureCount  int64   `json:"failure_count"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
}

// NewPerformanceTracker creates a tracker keeping at most window latency
// samples per model.
func NewPerformanceTracker(window int) *PerformanceTracker {
	if window <= 0 {
		window = 100
	}
	return &PerformanceTracker{
		window: window,
		models: make(map[string]*modelPerf),
	}
}

// Record appends a latency sample and bumps the success or failure counter.
func (t *PerformanceTracker) Record(model string, latency time.Duration, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	perf, ok := t.models[model]
	if !ok {
		perf = &modelPerf{latencies: make([]time.Duration, t.window)}
		t.models[model] = perf
	}

	perf.latencies[perf.next] = latency
	perf.next++
	if perf.next == t.window {
		perf.next = 0
		perf.filled = true
	}

	if success {
		perf.successes++
	} else {
		perf.failures++
	}
}

// Stats returns the reporting snapshot for one model.
func (t *PerformanceTracker) Stats(model string) (ModelStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	perf, ok := t.models[model]
	if !ok {
		return ModelStats{}, false
	}
	return t.snapshot(model, perf), true
}

// AllStats returns snapshots for every tracked model, sorted by model id.
func (t *PerformanceTracker) AllStats() []ModelStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ModelStats, 0, len(t.models))
	for model, perf := range t.models {
		out = append(out, t.snapshot(model, perf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// TrackedModels returns how many models have recorded samples.
func (t *PerformanceTracker) TrackedModels() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.models)
}

func (t *PerformanceTracker) snapshot(model string, perf *modelPerf) ModelStats {
	samples := perf.samples()

	stats := ModelStats{
		Model:         model,
		TotalRequests: perf.successes + perf.failures,
		FailureCount:  perf.failures,
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(perf.successes) / float64(stats.TotalRequests)
	}
	if len(samples) == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, s := range sorted {
		total += s
	}
	stats.AvgLatencyMs = toMs(total) / float64(len(sorted))
	stats.P50LatencyMs = toMs(percentile(sorted, 0.50))
	stats.P95LatencyMs = toMs(percentile(sorted, 0.95))
	stats.P99LatencyMs = toMs(percentile(sorted, 0.99))

	return stats
}

func (p *modelPerf) samples() []time.Duration {
	if p.filled {
		return p.latencies
	}
	return p.latencies[:p.next]
}

// percentile picks the nearest-rank sample from a sorted slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
