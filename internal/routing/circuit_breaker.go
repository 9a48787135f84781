package routing

import (
	"sync"
	"time"
)

// CircuitBreaker gates whether a model may be tried based on its recent
// failure history. It is a two-state breaker (closed/open) with purely
// time-based recovery: once resetTimeout has elapsed since the last failure
// the state clears on the next query. There is no half-open probe; a closed
// circuit means safe to try.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	resetTimeout     time.Duration
	states           map[string]*circuitState
	now              func() time.Time
}

type circuitState struct {
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker tracking every model lazily.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		states:           make(map[string]*circuitState),
		now:              time.Now,
	}
}

// RecordFailure increments the failure count and stamps the failure time.
func (cb *CircuitBreaker) RecordFailure(model string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[model]
	if !ok {
		st = &circuitState{}
		cb.states[model] = st
	}

	st.failures++
	st.lastFailure = cb.now()
}

// RecordSuccess grants partial recovery credit: the failure count drops by
// one, floored at zero. It does not clear history outright.
func (cb *CircuitBreaker) RecordSuccess(model string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[model]
	if !ok {
		return
	}

	if st.failures > 0 {
		st.failures--
	}
}

// IsOpen reports whether the model is currently gated off. Querying a model
// whose reset timeout has elapsed clears its state as a side effect.
func (cb *CircuitBreaker) IsOpen(model string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[model]
	if !ok || st.failures == 0 {
		return false
	}

	if cb.now().Sub(st.lastFailure) > cb.resetTimeout {
		st.failures = 0
		st.lastFailure = time.Time{}
		return false
	}

	return st.failures >= cb.failureThreshold
}

// Reset clears the state for a model.
func (cb *CircuitBreaker) Reset(model string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	delete(cb.states, model)
}

// FailureCount returns the current failure count for a model.
func (cb *CircuitBreaker) FailureCount(model string) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if st, ok := cb.states[model]; ok {
		return st.failures
	}
	return 0
}

// OpenCount returns how many models are currently gated off.
func (cb *CircuitBreaker) OpenCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	count := 0
	for _, st := range cb.states {
		if st.failures >= cb.failureThreshold && now.Sub(st.lastFailure) <= cb.resetTimeout {
			count++
		}
	}
	return count
}
