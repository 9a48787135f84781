package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/adapters/ai"
	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fail: make(map[string]error)}
}

func (f *fakeTransport) failModel(model string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[model] = err
}

func (f *fakeTransport) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req.Model)
	if err, ok := f.fail[req.Model]; ok {
		return nil, err
	}

	return &ai.ChatResponse{
		ID:      "resp-1",
		Model:   req.Model,
		Content: "ok",
		Usage:   ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) calledModels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type routerFixture struct {
	router    *Router
	transport *fakeTransport
	breaker   *CircuitBreaker
	backoffs  []time.Duration
}

func newTestRouter(t *testing.T, mutate func(*Config)) *routerFixture {
	t.Helper()

	registry, err := NewRegistry(testCatalog())
	require.NoError(t, err)

	cfg := Config{
		DefaultModel:     "fast-mini",
		MaxRetries:       3,
		CacheEnabled:     true,
		CostThresholdUSD: 0.10,
		BackoffUnit:      time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	fixture := &routerFixture{
		transport: newFakeTransport(),
		breaker:   NewCircuitBreaker(5, time.Minute),
	}

	fixture.router = New(
		registry,
		fixture.transport,
		fixture.breaker,
		NewResponseCache(time.Minute, 100),
		NewPerformanceTracker(100),
		cfg,
		logger.Get(),
	)
	fixture.router.sleep = func(ctx context.Context, d time.Duration) error {
		fixture.backoffs = append(fixture.backoffs, d)
		return nil
	}

	return fixture
}

func textRequest(text string) Request {
	return Request{
		TaskType: TaskTypeGeneral,
		Messages: []ai.Message{{Role: ai.RoleUser, Content: text}},
	}
}

func visionRequest() Request {
	return Request{
		TaskType: TaskTypeGeneral,
		Messages: []ai.Message{{
			Role: ai.RoleUser,
			Parts: []ai.ContentPart{
				{Type: ai.ContentTypeText, Text: "what phase is this?"},
				{Type: ai.ContentTypeImageURL, ImageURL: "https://example.com/site.jpg"},
			},
		}},
	}
}

func TestCompleteRoutesToHighestPriorityModel(t *testing.T) {
	fx := newTestRouter(t, nil)

	resp, err := fx.router.Complete(context.Background(), textRequest("daily report"))
	require.NoError(t, err)

	assert.Equal(t, "vision-pro", resp.ModelUsed)
	assert.Equal(t, 0, resp.FallbackAttempt)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.RequestID)
	assert.InDelta(t, (100.0/1000)*0.0025+(50.0/1000)*0.01, resp.EstimatedCostUSD, 1e-9)
}

func TestCompleteFallsBackOnFailure(t *testing.T) {
	fx := newTestRouter(t, nil)
	fx.transport.failModel("vision-pro", errors.Wrap(errors.ErrExternal, "upstream 500"))

	resp, err := fx.router.Complete(context.Background(), textRequest("hello"))
	require.NoError(t, err)

	assert.Equal(t, "thinker", resp.ModelUsed)
	assert.Equal(t, 1, resp.FallbackAttempt)
	assert.Equal(t, []string{"vision-pro", "thinker"}, fx.transport.calledModels())

	// Failed attempt side effects persist even though the call succeeded.
	assert.Equal(t, 1, fx.breaker.FailureCount("vision-pro"))
	require.Len(t, fx.backoffs, 1)
	assert.Equal(t, time.Millisecond, fx.backoffs[0])
}

// Scenario A: an open breaker makes the router skip the model entirely.
func TestCompleteSkipsModelWithOpenBreaker(t *testing.T) {
	fx := newTestRouter(t, nil)

	for i := 0; i < 5; i++ {
		fx.breaker.RecordFailure("vision-pro")
	}
	require.True(t, fx.breaker.IsOpen("vision-pro"))

	resp, err := fx.router.Complete(context.Background(), textRequest("hello"))
	require.NoError(t, err)

	assert.Equal(t, "thinker", resp.ModelUsed)
	assert.NotContains(t, fx.transport.calledModels(), "vision-pro")
}

// Scenario B: image content restricts routing to vision-capable models.
func TestCompleteNeverRoutesImagesToTextOnlyModels(t *testing.T) {
	fx := newTestRouter(t, nil)
	fx.transport.failModel("vision-pro", errors.New("boom"))
	fx.transport.failModel("fast-mini", errors.New("boom"))

	_, err := fx.router.Complete(context.Background(), visionRequest())
	require.Error(t, err)

	for _, model := range fx.transport.calledModels() {
		assert.Contains(t, []string{"vision-pro", "fast-mini"}, model,
			"image requests must only reach vision-capable models")
	}
}

// Scenario C: a second identical pinned-model call is served from cache.
func TestCompletePinnedModelUsesCache(t *testing.T) {
	fx := newTestRouter(t, nil)

	req := textRequest("cache me")
	req.Model = "fast-mini"

	first, err := fx.router.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := fx.router.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, fx.transport.callCount(), "cache hit must not reach the transport")
}

func TestCompleteAutoRoutedCallsSkipCacheLookup(t *testing.T) {
	fx := newTestRouter(t, nil)

	req := textRequest("no pin, no cache read")
	_, err := fx.router.Complete(context.Background(), req)
	require.NoError(t, err)
	_, err = fx.router.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, fx.transport.callCount())
}

// Scenario D: exhaustion surfaces every attempt in order.
func TestCompleteExhaustionCarriesAttemptErrors(t *testing.T) {
	fx := newTestRouter(t, nil)
	for _, model := range []string{"vision-pro", "fast-mini", "thinker", "local-llama"} {
		fx.transport.failModel(model, errors.New("down"))
	}

	_, err := fx.router.Complete(context.Background(), textRequest("hello"))
	require.Error(t, err)

	var exhausted *ExhaustedFallbackError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Attempts, 3, "attempt list bounded by maxRetries")
	assert.True(t, errors.Is(err, errors.ErrModelUnavailable))

	for i, attempt := range exhausted.Attempts {
		assert.Equal(t, i+1, attempt.Attempt)
	}

	// Exponential backoff between attempts: 1x, 2x the unit.
	require.Len(t, fx.backoffs, 2)
	assert.Equal(t, time.Millisecond, fx.backoffs[0])
	assert.Equal(t, 2*time.Millisecond, fx.backoffs[1])
}

// Scenario E: an over-threshold estimate routes to a cheaper high-quality
// alternative from the chain.
func TestCompleteSubstitutesCheaperModelOverCostThreshold(t *testing.T) {
	fx := newTestRouter(t, func(cfg *Config) {
		cfg.CostThresholdUSD = 0.05
	})

	req := textRequest("long transcription")
	req.Options.MaxTokens = 10000 // vision-pro output estimate: $0.10

	resp, err := fx.router.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "thinker", resp.ModelUsed)
	assert.Equal(t, []string{"thinker"}, fx.transport.calledModels())
}

func TestCompleteUnknownPinnedModel(t *testing.T) {
	fx := newTestRouter(t, nil)

	req := textRequest("hello")
	req.Model = "ghost"

	_, err := fx.router.Complete(context.Background(), req)
	assert.True(t, errors.Is(err, errors.ErrModelUnavailable))
	assert.Zero(t, fx.transport.callCount())
}

func TestCompleteModelAttemptedAtMostOnce(t *testing.T) {
	fx := newTestRouter(t, func(cfg *Config) {
		cfg.MaxRetries = 10
	})
	for _, model := range []string{"vision-pro", "fast-mini", "thinker", "local-llama"} {
		fx.transport.failModel(model, errors.New("down"))
	}

	_, err := fx.router.Complete(context.Background(), textRequest("hello"))
	require.Error(t, err)

	seen := make(map[string]int)
	for _, model := range fx.transport.calledModels() {
		seen[model]++
		assert.Equal(t, 1, seen[model], "model %s attempted more than once", model)
	}
}

func TestFallbackChainExcludesOpenBreakers(t *testing.T) {
	fx := newTestRouter(t, nil)

	for i := 0; i < 5; i++ {
		fx.breaker.RecordFailure("thinker")
	}

	chain := fx.router.fallbackChain(CapabilityText, "vision-pro")
	for _, d := range chain {
		assert.False(t, fx.breaker.IsOpen(d.ID))
		assert.NotEqual(t, "vision-pro", d.ID)
	}
}

func TestFallbackChainAppendsEmergencyModelsOnce(t *testing.T) {
	fx := newTestRouter(t, nil)

	chain := fx.router.fallbackChain(CapabilitySpeed, "fast-mini")

	seen := make(map[string]int)
	for _, d := range chain {
		seen[d.ID]++
	}
	assert.Equal(t, 1, seen["local-llama"], "emergency model must appear exactly once")
}

func TestCompleteContextCancelledDuringBackoff(t *testing.T) {
	fx := newTestRouter(t, nil)
	fx.transport.failModel("vision-pro", errors.New("down"))

	ctx, cancel := context.WithCancel(context.Background())
	fx.router.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := fx.router.Complete(ctx, textRequest("hello"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrModelUnavailable)
}

func TestHealthCheckReportsCoreState(t *testing.T) {
	fx := newTestRouter(t, nil)

	report := fx.router.HealthCheck(context.Background())
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "local-llama", report.ProbeModel)
	assert.Equal(t, 4, report.ModelsAvailable)
	assert.Zero(t, report.CircuitBreakersOpen)

	fx.transport.failModel("local-llama", errors.New("offline"))
	report = fx.router.HealthCheck(context.Background())
	assert.Equal(t, "unhealthy", report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestModelStatsAfterCompletions(t *testing.T) {
	fx := newTestRouter(t, nil)

	req := textRequest("stats")
	_, err := fx.router.Complete(context.Background(), req)
	require.NoError(t, err)

	stats, ok := fx.router.ModelStats("vision-pro")
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, 1.0, stats.SuccessRate)

	all := fx.router.AllModelStats()
	assert.Len(t, all, 1)
}
