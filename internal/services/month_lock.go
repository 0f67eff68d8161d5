package services

import (
	"context"
	"time"

	"employee-coupon/internal/logger"
	"employee-coupon/internal/redis"
)

// lockRedis is the narrow Redis surface the month lock needs.
type lockRedis interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// MonthLock serializes rule creation for a calendar month across processes.
// It is a best-effort single-flight guard in front of the authoritative
// uniqueness constraint on discount_rules.from_date: with no Redis client
// the lock degrades to a no-op and the constraint alone resolves races.
type MonthLock struct {
	redis   lockRedis
	log     *logger.Logger
	enabled bool
	ttl     time.Duration
}

// NewMonthLock creates a month lock. A nil client or non-positive TTL
// disables it.
func NewMonthLock(redisClient *redis.Client, log *logger.Logger, ttlSeconds int) *MonthLock {
	if redisClient == nil || ttlSeconds <= 0 {
		return &MonthLock{enabled: false}
	}

	return &MonthLock{
		redis:   redisClient,
		log:     log,
		enabled: true,
		ttl:     time.Duration(ttlSeconds) * time.Second,
	}
}

// Acquire tries to take the lock for the month starting at from. The
// returned release func is always safe to call. When the lock is disabled
// or Redis is unreachable the caller proceeds anyway; acquired then reports
// whether this caller may assume it is alone.
func (l *MonthLock) Acquire(ctx context.Context, from time.Time) (release func(), acquired bool) {
	if !l.enabled {
		return func() {}, true
	}

	key := redis.GenerateKey(redis.KeyPrefixRuleLock, from.Format("2006-01-02"))

	won, err := l.redis.SetNX(ctx, key, 1, l.ttl)
	if err != nil {
		l.log.WithError(err).Warn("Month lock unavailable, relying on from_date uniqueness")
		return func() {}, false
	}
	if !won {
		return func() {}, false
	}

	return func() {
		if err := l.redis.Delete(context.Background(), key); err != nil {
			// TTL reclaims the lock if the delete is lost
			l.log.WithError(err).Warn("Failed to release month lock")
		}
	}, true
}
