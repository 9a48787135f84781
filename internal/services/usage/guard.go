package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

// Guard enforces hard limits on LLM spending per user.
type Guard struct {
	maxDailyCostPerUser decimal.Decimal
	maxCostPerRequest   decimal.Decimal
	cache               SpendCache
	tracker             *Tracker
	log                 *logger.Logger
}

// SpendCache provides fast access to spending data (typically Redis).
type SpendCache interface {
	GetDailySpending(ctx context.Context, userID string) (decimal.Decimal, error)
	IncrementSpending(ctx context.Context, userID string, amount decimal.Decimal, ttl time.Duration) error
}

// NewGuard creates a cost guard with the given limits.
func NewGuard(maxDailyCostPerUser, maxCostPerRequest decimal.Decimal, cache SpendCache, tracker *Tracker) *Guard {
	return &Guard{
		maxDailyCostPerUser: maxDailyCostPerUser,
		maxCostPerRequest:   maxCostPerRequest,
		cache:               cache,
		tracker:             tracker,
		log:                 logger.Get().With("component", "cost_guard"),
	}
}

// CheckDailyLimit returns an error when the user's daily spending has
// reached the limit. A cache failure allows the request through.
func (g *Guard) CheckDailyLimit(ctx context.Context, userID string) error {
	spending, err := g.cache.GetDailySpending(ctx, userID)
	if err != nil {
		g.log.Errorf("Failed to get daily spending from cache: %v", err)
		return nil
	}

	if spending.GreaterThanOrEqual(g.maxDailyCostPerUser) {
		g.log.Warnf("User %s exceeded daily cost limit: $%s / $%s",
			userID, spending.StringFixed(2), g.maxDailyCostPerUser.StringFixed(2))
		return errors.Wrapf(errors.ErrDailyLimitExceeded,
			"daily LLM cost limit exceeded: $%s / $%s",
			spending.StringFixed(2), g.maxDailyCostPerUser.StringFixed(2))
	}

	// Warn when approaching the limit (80%)
	threshold := g.maxDailyCostPerUser.Mul(decimal.NewFromFloat(0.80))
	if spending.GreaterThanOrEqual(threshold) {
		g.log.Warnf("User %s approaching daily cost limit: $%s / $%s",
			userID, spending.StringFixed(2), g.maxDailyCostPerUser.StringFixed(2))
	}

	return nil
}

// CheckRequestLimit rejects a single request whose estimate exceeds the
// per-request ceiling.
func (g *Guard) CheckRequestLimit(estimatedCost decimal.Decimal) error {
	if estimatedCost.GreaterThan(g.maxCostPerRequest) {
		return errors.Wrapf(errors.ErrRequestLimitExceeded,
			"request cost limit exceeded: $%s / $%s",
			estimatedCost.StringFixed(4), g.maxCostPerRequest.StringFixed(2))
	}
	return nil
}

// RecordCost records actual cost after a completion. Accounting failures
// never fail the completion itself.
func (g *Guard) RecordCost(ctx context.Context, userID string, actualCost decimal.Decimal) {
	if err := g.cache.IncrementSpending(ctx, userID, actualCost, 24*time.Hour); err != nil {
		g.log.Errorf("Failed to increment daily spending: %v", err)
	}

	g.log.Debugf("Recorded cost for user %s: $%s", userID, actualCost.StringFixed(4))
}

// RemainingDailyBudget returns how much budget the user has left today.
func (g *Guard) RemainingDailyBudget(ctx context.Context, userID string) (decimal.Decimal, error) {
	spending, err := g.cache.GetDailySpending(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	remaining := g.maxDailyCostPerUser.Sub(spending)
	if remaining.LessThan(decimal.Zero) {
		remaining = decimal.Zero
	}
	return remaining, nil
}

// RedisSpendCache implements SpendCache on Redis with daily keys.
type RedisSpendCache struct {
	redis RedisClient
	now   func() time.Time
}

// RedisClient is the minimal Redis surface the spend cache needs.
type RedisClient interface {
	GetString(ctx context.Context, key string) (string, error)
	IncrByFloat(ctx context.Context, key string, value float64) (float64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// NewRedisSpendCache creates a Redis-backed spend cache.
func NewRedisSpendCache(redis RedisClient) *RedisSpendCache {
	return &RedisSpendCache{redis: redis, now: time.Now}
}

// spendKey buckets spending by calendar day so yesterday's spending never
// counts against today's budget.
func (rc *RedisSpendCache) spendKey(userID string) string {
	return fmt.Sprintf("spend:daily:%s:%s", rc.now().UTC().Format("2006-01-02"), userID)
}

// GetDailySpending retrieves today's spending for a user.
func (rc *RedisSpendCache) GetDailySpending(ctx context.Context, userID string) (decimal.Decimal, error) {
	val, err := rc.redis.GetString(ctx, rc.spendKey(userID))
	if err != nil {
		// Missing key means no spending yet
		return decimal.Zero, nil
	}

	spending, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "invalid spending value")
	}
	return spending, nil
}

// IncrementSpending atomically adds to today's spending.
func (rc *RedisSpendCache) IncrementSpending(ctx context.Context, userID string, amount decimal.Decimal, ttl time.Duration) error {
	key := rc.spendKey(userID)

	if _, err := rc.redis.IncrByFloat(ctx, key, amount.InexactFloat64()); err != nil {
		return errors.Wrap(err, "failed to increment spending")
	}
	if err := rc.redis.Expire(ctx, key, ttl); err != nil {
		return errors.Wrap(err, "failed to set TTL")
	}
	return nil
}
