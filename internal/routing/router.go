package routing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"foreman/internal/adapters/ai"
	"foreman/internal/metrics"
	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

// Transport is the external collaborator that actually talks to a backend.
// The router treats timeouts and protocol errors uniformly as attempt
// failures; see ai.IsTimeout for telling them apart in diagnostics.
type Transport interface {
	Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error)
}

// Config tunes the router.
type Config struct {
	DefaultModel     string
	MaxRetries       int
	CacheEnabled     bool
	CostThresholdUSD float64
	BackoffUnit      time.Duration
}

// Router selects a model for each completion request, builds a fallback
// chain and works through it sequentially until one candidate succeeds.
// Breaker, cache and tracker updates from failed attempts are never rolled
// back, even when a later fallback succeeds.
type Router struct {
	registry  *Registry
	transport Transport
	breaker   *CircuitBreaker
	cache     *ResponseCache
	perf      *PerformanceTracker
	cfg       Config
	log       *logger.Logger

	// sleep is stubbed in tests to skip real backoff waits
	sleep func(ctx context.Context, d time.Duration) error
}

// outputTokenFallback is the output-size guess used for cost estimation
// when the caller did not cap max_tokens.
const outputTokenFallback = 512

// New creates a router over a static registry and a transport.
func New(
	registry *Registry,
	transport Transport,
	breaker *CircuitBreaker,
	cache *ResponseCache,
	perf *PerformanceTracker,
	cfg Config,
	log *logger.Logger,
) *Router {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = 500 * time.Millisecond
	}

	return &Router{
		registry:  registry,
		transport: transport,
		breaker:   breaker,
		cache:     cache,
		perf:      perf,
		cfg:       cfg,
		log:       log.With("component", "router"),
		sleep:     sleepCtx,
	}
}

// Complete routes one completion request. The only hard failure is total
// exhaustion of the attempt budget; every intermediate failure is absorbed
// and retried against the next fallback candidate.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	pinned := req.Model != ""
	requestID := uuid.NewString()

	// Cache is an optimization for pinned-model callers only; auto-routed
	// calls skip the lookup entirely.
	if pinned && r.cfg.CacheEnabled {
		if resp, ok := r.cache.Get(req.Model, req.Messages, req.Options); ok {
			resp.Cached = true
			resp.RequestID = requestID
			metrics.CacheHits.Inc()
			metrics.CompletionRequests.WithLabelValues(req.Model, "cached").Inc()
			return &resp, nil
		}
		metrics.CacheMisses.Inc()
	}

	capability := req.TaskType.Capability()
	if req.HasImage() {
		capability = CapabilityVision
	}

	var primary ModelDescriptor
	if pinned {
		d, ok := r.registry.Get(req.Model)
		if !ok {
			return nil, errors.Wrapf(errors.ErrModelUnavailable, "unknown model %s", req.Model)
		}
		primary = d
	} else {
		primary = r.selectModel(req, capability)
	}

	chain := r.fallbackChain(capability, primary.ID)
	candidates := append([]ModelDescriptor{primary}, chain...)

	inputTokens := req.InputTokenEstimate()
	outputTokens := req.Options.MaxTokens
	if outputTokens <= 0 {
		outputTokens = outputTokenFallback
	}

	attempts := 0
	tried := make(map[string]bool, len(candidates))
	var attemptErrs []AttemptError

	for i := 0; i < len(candidates) && attempts < r.cfg.MaxRetries; i++ {
		candidate := candidates[i]

		// A model is attempted at most once per call.
		if tried[candidate.ID] {
			continue
		}
		if r.breaker.IsOpen(candidate.ID) {
			metrics.CircuitBreakerSkips.WithLabelValues(candidate.ID).Inc()
			r.log.Debugw("Skipping model with open circuit", "model", candidate.ID)
			continue
		}

		// Advisory cost check: substitute a much cheaper high-quality
		// alternative when the estimate crosses the threshold, but never
		// block the attempt outright.
		estCost := r.registry.EstimateCost(candidate.ID, inputTokens, outputTokens)
		if estCost > r.cfg.CostThresholdUSD {
			if alt, ok := r.cheaperAlternative(chain, candidate, inputTokens, outputTokens, tried); ok {
				r.log.Infow("Substituting cheaper model",
					"original", candidate.ID,
					"substitute", alt.ID,
					"estimated_cost_usd", estCost,
				)
				candidate = alt
			}
		}

		attempts++
		tried[candidate.ID] = true

		resp, err := r.attempt(ctx, candidate, req, requestID, attempts-1)
		if err == nil {
			return resp, nil
		}

		attemptErrs = append(attemptErrs, AttemptError{
			Model:   candidate.ID,
			Attempt: attempts,
			Err:     err,
		})

		if attempts < r.cfg.MaxRetries && i+1 < len(candidates) {
			backoff := r.cfg.BackoffUnit * time.Duration(1<<(attempts-1))
			if serr := r.sleep(ctx, backoff); serr != nil {
				return nil, errors.Wrap(serr, "completion cancelled during backoff")
			}
		}
	}

	metrics.FallbackExhausted.Inc()
	return nil, &ExhaustedFallbackError{Attempts: attemptErrs}
}

// attempt calls the transport once with the candidate's per-model timeout,
// recording breaker and tracker side effects either way.
func (r *Router) attempt(ctx context.Context, candidate ModelDescriptor, req Request, requestID string, fallbackIdx int) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, candidate.Timeout)
	defer cancel()

	start := time.Now()
	chatResp, err := r.transport.Chat(callCtx, buildChatRequest(candidate.ID, req))
	latency := time.Since(start)

	if err != nil {
		r.breaker.RecordFailure(candidate.ID)
		r.perf.Record(candidate.ID, latency, false)
		if r.breaker.IsOpen(candidate.ID) {
			metrics.CircuitBreakerOpens.WithLabelValues(candidate.ID).Inc()
		}
		metrics.ProviderErrors.WithLabelValues(candidate.ID, errorKind(err)).Inc()
		metrics.RecordCompletion(candidate.ID, latency, 0, 0, 0, err)

		r.log.Warnw("Model attempt failed",
			"model", candidate.ID,
			"provider", candidate.Provider,
			"fallback_attempt", fallbackIdx,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	r.breaker.RecordSuccess(candidate.ID)
	r.perf.Record(candidate.ID, latency, true)

	cost := r.responseCost(candidate.ID, chatResp.Usage)
	resp := &Response{
		ID:               chatResp.ID,
		RequestID:        requestID,
		Content:          chatResp.Content,
		Usage:            chatResp.Usage,
		ModelUsed:        candidate.ID,
		Provider:         candidate.Provider,
		FallbackAttempt:  fallbackIdx,
		LatencyMs:        latency.Milliseconds(),
		EstimatedCostUSD: cost,
	}

	if r.cfg.CacheEnabled {
		r.cache.Set(candidate.ID, req.Messages, req.Options, *resp)
		metrics.CacheSize.Set(float64(r.cache.Len()))
	}

	metrics.RecordCompletion(candidate.ID, latency, cost, chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, nil)
	metrics.FallbackDepth.Observe(float64(fallbackIdx))

	r.log.Infow("Completion served",
		"model", candidate.ID,
		"provider", candidate.Provider,
		"fallback_attempt", fallbackIdx,
		"latency_ms", latency.Milliseconds(),
		"cost_usd", cost,
	)

	return resp, nil
}

// selectModel picks the primary candidate for an auto-routed request.
func (r *Router) selectModel(req Request, capability Capability) ModelDescriptor {
	if capability == CapabilityVision {
		candidates := r.registry.ModelsFor(CapabilityVision)
		if len(candidates) > 0 {
			sort.SliceStable(candidates, func(i, j int) bool {
				if candidates[i].Priority != candidates[j].Priority {
					return candidates[i].Priority < candidates[j].Priority
				}
				return candidates[i].CostPer1KInput < candidates[j].CostPer1KInput
			})
			return candidates[0]
		}
		return r.defaultModel()
	}

	estimate := req.InputTokenEstimate()
	all := r.registry.ModelsFor(capability)
	candidates := make([]ModelDescriptor, 0, len(all))
	for _, d := range all {
		if d.MaxContextTokens > estimate {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return r.defaultModel()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].CostPer1KInput < candidates[j].CostPer1KInput
	})
	return candidates[0]
}

// fallbackChain lists every other model supporting the capability, open
// breakers excluded, with zero-cost emergency models appended as last
// resort. No model id appears twice.
func (r *Router) fallbackChain(capability Capability, primaryID string) []ModelDescriptor {
	seen := map[string]bool{primaryID: true}

	var chain []ModelDescriptor
	for _, d := range r.registry.ModelsFor(capability) {
		if seen[d.ID] || r.breaker.IsOpen(d.ID) {
			continue
		}
		seen[d.ID] = true
		chain = append(chain, d)
	}

	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].Priority != chain[j].Priority {
			return chain[i].Priority < chain[j].Priority
		}
		if chain[i].QualityScore != chain[j].QualityScore {
			return chain[i].QualityScore > chain[j].QualityScore
		}
		return chain[i].CostPer1KInput < chain[j].CostPer1KInput
	})

	for _, d := range r.registry.Emergency() {
		if seen[d.ID] || r.breaker.IsOpen(d.ID) {
			continue
		}
		// Image requests never degrade to a text-only emergency model.
		if capability == CapabilityVision && !d.Supports(CapabilityVision) {
			continue
		}
		seen[d.ID] = true
		chain = append(chain, d)
	}

	return chain
}

// cheaperAlternative searches the fallback chain for a model costing less
// than half of the candidate with a quality prior of at least 0.8.
func (r *Router) cheaperAlternative(chain []ModelDescriptor, candidate ModelDescriptor, inputTokens, outputTokens int, tried map[string]bool) (ModelDescriptor, bool) {
	candidateCost := r.registry.EstimateCost(candidate.ID, inputTokens, outputTokens)

	for _, alt := range chain {
		if alt.ID == candidate.ID || tried[alt.ID] || r.breaker.IsOpen(alt.ID) {
			continue
		}
		altCost := r.registry.EstimateCost(alt.ID, inputTokens, outputTokens)
		if altCost < candidateCost*0.5 && alt.QualityScore >= 0.8 {
			return alt, true
		}
	}
	return ModelDescriptor{}, false
}

func (r *Router) defaultModel() ModelDescriptor {
	if d, ok := r.registry.Get(r.cfg.DefaultModel); ok {
		return d
	}
	return ModelDescriptor{ID: r.cfg.DefaultModel, Timeout: defaultModelTimeout}
}

func (r *Router) responseCost(model string, usage ai.Usage) float64 {
	return r.registry.EstimateCost(model, usage.PromptTokens, usage.CompletionTokens)
}

// ModelStats returns observability statistics for one model.
func (r *Router) ModelStats(model string) (ModelStats, bool) {
	return r.perf.Stats(model)
}

// AllModelStats returns observability statistics for every tracked model.
func (r *Router) AllModelStats() []ModelStats {
	return r.perf.AllStats()
}

// Breaker exposes the circuit breaker for observability endpoints.
func (r *Router) Breaker() *CircuitBreaker {
	return r.breaker
}

func buildChatRequest(model string, req Request) ai.ChatRequest {
	return ai.ChatRequest{
		Model:            model,
		Messages:         req.Messages,
		MaxTokens:        req.Options.MaxTokens,
		Temperature:      req.Options.Temperature,
		TopP:             req.Options.TopP,
		Stop:             req.Options.Stop,
		FrequencyPenalty: req.Options.FrequencyPenalty,
		PresencePenalty:  req.Options.PresencePenalty,
		Stream:           req.Options.Stream,
	}
}

func errorKind(err error) string {
	switch {
	case ai.IsTimeout(err):
		return "timeout"
	case errors.Is(err, errors.ErrExternal):
		return "api"
	default:
		return "other"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
