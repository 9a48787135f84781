package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/adapters/ai"
	"foreman/internal/routing"
	"foreman/internal/services/usage"
	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

type stubTransport struct {
	err error
}

func (s *stubTransport) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.ChatResponse{
		ID:      "resp-1",
		Model:   req.Model,
		Content: "rebar spacing looks fine",
		Usage:   ai.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60},
	}, nil
}

type memorySpendCache struct {
	spending map[string]decimal.Decimal
}

func (m *memorySpendCache) GetDailySpending(ctx context.Context, userID string) (decimal.Decimal, error) {
	return m.spending[userID], nil
}

func (m *memorySpendCache) IncrementSpending(ctx context.Context, userID string, amount decimal.Decimal, ttl time.Duration) error {
	m.spending[userID] = m.spending[userID].Add(amount)
	return nil
}

func newTestHandler(t *testing.T, transport routing.Transport, cache *memorySpendCache) *Handler {
	t.Helper()

	registry, err := routing.NewRegistry(routing.DefaultCatalog())
	require.NoError(t, err)

	router := routing.New(
		registry,
		transport,
		routing.NewCircuitBreaker(5, time.Minute),
		routing.NewResponseCache(time.Minute, 100),
		routing.NewPerformanceTracker(100),
		routing.Config{DefaultModel: "gpt-4o-mini", MaxRetries: 3, CacheEnabled: true, CostThresholdUSD: 0.10, BackoffUnit: time.Millisecond},
		logger.Get(),
	)

	tracker := usage.NewTracker()
	var guard *usage.Guard
	if cache != nil {
		guard = usage.NewGuard(decimal.NewFromFloat(10), decimal.NewFromFloat(0.50), cache, tracker)
	}

	return New(router, registry, guard, tracker, logger.Get())
}

func postCompletion(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCompletion(rec, req)
	return rec
}

func TestHandleCompletion(t *testing.T) {
	cache := &memorySpendCache{spending: make(map[string]decimal.Decimal)}
	h := newTestHandler(t, &stubTransport{}, cache)

	rec := postCompletion(t, h, `{
		"user_id": "user-1",
		"task_type": "general",
		"messages": [{"role": "user", "content": "is the slab ready for inspection?"}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp routing.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rebar spacing looks fine", resp.Content)
	assert.NotEmpty(t, resp.ModelUsed)
	assert.Equal(t, 60, resp.Usage.TotalTokens)

	// Usage accounting recorded against the served model
	mu, ok := h.tracker.Usage(resp.ModelUsed)
	require.True(t, ok)
	assert.Equal(t, int64(1), mu.Requests)
	assert.True(t, cache.spending["user-1"].GreaterThan(decimal.Zero))
}

func TestHandleCompletionInvalidPayload(t *testing.T) {
	h := newTestHandler(t, &stubTransport{}, nil)

	rec := postCompletion(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postCompletion(t, h, `{"messages": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postCompletion(t, h, `{"messages": [{"role": "robot", "content": "hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompletionDailyLimitExceeded(t *testing.T) {
	cache := &memorySpendCache{spending: map[string]decimal.Decimal{
		"user-1": decimal.NewFromFloat(10),
	}}
	h := newTestHandler(t, &stubTransport{}, cache)

	rec := postCompletion(t, h, `{
		"user_id": "user-1",
		"messages": [{"role": "user", "content": "hi"}]
	}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleCompletionExhaustedFallback(t *testing.T) {
	h := newTestHandler(t, &stubTransport{err: errors.Wrap(errors.ErrExternal, "all providers down")}, nil)

	rec := postCompletion(t, h, `{"messages": [{"role": "user", "content": "hi"}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCompletionMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubTransport{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/completions", nil)
	rec := httptest.NewRecorder()
	h.HandleCompletion(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleModels(t *testing.T) {
	h := newTestHandler(t, &stubTransport{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.HandleModels(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []struct {
			ID       string `json:"id"`
			Provider string `json:"provider"`
			Priority string `json:"priority"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Models)
	for _, m := range body.Models {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Provider)
		assert.NotEmpty(t, m.Priority)
	}
}

func TestHandleUsage(t *testing.T) {
	h := newTestHandler(t, &stubTransport{}, nil)
	h.tracker.Record("gpt-4o-mini", 100, 50, 0.001, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	rec := httptest.NewRecorder()
	h.HandleUsage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalCostUSD float64 `json:"total_cost_usd"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 0.001, body.TotalCostUSD, 1e-9)
}
