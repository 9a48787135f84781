package ai

import (
	"context"
	"testing"
	"time"

	"foreman/pkg/errors"
)

func TestTokenBucketLimiter_Burst(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 60, 2)

	if !limiter.Allow() {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow() {
		t.Error("second request should be allowed")
	}
	if limiter.Allow() {
		t.Error("third request should be denied, bucket empty")
	}
}

func TestTokenBucketLimiter_WaitRefills(t *testing.T) {
	// 600 req/min = 10 req/sec so the wait stays short
	limiter := NewTokenBucketLimiter(ProviderNameGroq, 600, 1)

	ctx := context.Background()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait should succeed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second wait should eventually succeed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected to wait ~100ms for a token, waited %v", elapsed)
	}
}

func TestTokenBucketLimiter_ContextCancellation(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 6, 1) // 0.1 req/sec

	_ = limiter.Allow() // consume the burst

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err == nil {
		t.Fatal("expected error due to context cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got: %v", err)
	}
}

func TestTokenBucketLimiter_Limit(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameDeepSeek, 120, 5)

	if got := limiter.Limit(); got != 120 {
		t.Errorf("expected limit 120 req/min, got %v", got)
	}
}

func TestNoOpLimiter(t *testing.T) {
	limiter := NewNoOpLimiter()

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("no-op wait should never fail: %v", err)
	}
	if !limiter.Allow() {
		t.Error("no-op limiter should always allow")
	}
	if limiter.Limit() != -1 {
		t.Error("no-op limiter should report unlimited")
	}
}
