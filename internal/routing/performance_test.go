package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceTrackerStats(t *testing.T) {
	tracker := NewPerformanceTracker(10)

	tracker.Record("m", 100*time.Millisecond, true)
	tracker.Record("m", 200*time.Millisecond, true)
	tracker.Record("m", 300*time.Millisecond, false)

	stats, ok := tracker.Stats("m")
	require.True(t, ok)

	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.FailureCount)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 200, stats.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 200, stats.P50LatencyMs, 1e-9)
	assert.InDelta(t, 300, stats.P99LatencyMs, 1e-9)
}

func TestPerformanceTrackerWindowBound(t *testing.T) {
	tracker := NewPerformanceTracker(5)

	// Older samples fall out of the ring; counters keep the full history.
	for i := 0; i < 50; i++ {
		tracker.Record("m", time.Duration(i+1)*time.Millisecond, true)
	}

	stats, ok := tracker.Stats("m")
	require.True(t, ok)
	assert.Equal(t, int64(50), stats.TotalRequests)
	// Only the last 5 samples (46..50ms) remain.
	assert.InDelta(t, 48, stats.AvgLatencyMs, 1e-9)
}

func TestPerformanceTrackerUnknownModel(t *testing.T) {
	tracker := NewPerformanceTracker(5)

	_, ok := tracker.Stats("missing")
	assert.False(t, ok)
	assert.Zero(t, tracker.TrackedModels())
	assert.Empty(t, tracker.AllStats())
}

func TestPerformanceTrackerAllStatsSorted(t *testing.T) {
	tracker := NewPerformanceTracker(5)
	tracker.Record("zeta", time.Millisecond, true)
	tracker.Record("alpha", time.Millisecond, true)

	all := tracker.AllStats()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Model)
	assert.Equal(t, "zeta", all[1].Model)
}
