// Package guard is the per-user abuse check in front of write-inducing
// operations. It keeps a token bucket per user in Redis: capacity 10,
// refilled at 10 tokens per hour, mirroring the limits the product ran
// with before this service existed.
package guard

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/redis/go-redis/v9"
)

const (
	bucketCapacity = 10
	refillTokens   = 10
	refillInterval = time.Hour
	keyPrefix      = "quota:"
)

// Decision is the outcome of one quota consumption attempt.
type Decision struct {
	Allowed   bool
	Remaining int64
	// ResetIn is how long until the bucket is full again; clients use it
	// as a backoff hint.
	ResetIn time.Duration
}

// refill computes the bucket state after elapsed time, without side
// effects. Split out so the arithmetic is testable without Redis.
func refill(tokens int64, elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return tokens
	}
	earned := int64(elapsed/refillInterval) * refillTokens
	tokens += earned
	if tokens > bucketCapacity {
		tokens = bucketCapacity
	}
	return tokens
}

// resetIn reports how long until a bucket holding tokens is back at
// capacity, counting from the last refill boundary.
func resetIn(tokens int64, sinceRefill time.Duration) time.Duration {
	if tokens >= bucketCapacity {
		return 0
	}
	missing := bucketCapacity - tokens
	intervals := (missing + refillTokens - 1) / refillTokens
	d := time.Duration(intervals)*refillInterval - sinceRefill
	if d < 0 {
		d = 0
	}
	return d
}

// Protect consumes requested tokens from the caller's bucket. It must be
// called before any database mutation: a denial leaves no side effects
// anywhere. A Redis outage fails open (the quota is protection, not a
// correctness dependency).
func Protect(ctx context.Context, userId string, requested int64) (*Decision, error) {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return &Decision{Allowed: true, Remaining: bucketCapacity}, nil
	}
	if userId == "" {
		return nil, utils.ErrorRequestBlocked
	}

	key := keyPrefix + userId
	now := time.Now()

	var decision *Decision
	err := rdb.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}

		tokens := int64(bucketCapacity)
		last := now
		if len(vals) > 0 {
			if v, err := strconv.ParseInt(vals["tokens"], 10, 64); err == nil {
				tokens = v
			}
			if v, err := strconv.ParseInt(vals["updated"], 10, 64); err == nil {
				last = time.Unix(v, 0)
			}
			tokens = refill(tokens, now.Sub(last))
		}

		if tokens < requested {
			decision = &Decision{
				Allowed:   false,
				Remaining: tokens,
				ResetIn:   resetIn(tokens, now.Sub(last)%refillInterval),
			}
			return nil
		}

		tokens -= requested
		decision = &Decision{
			Allowed:   true,
			Remaining: tokens,
			ResetIn:   resetIn(tokens, 0),
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "tokens", tokens, "updated", now.Unix())
			pipe.Expire(ctx, key, 2*refillInterval)
			return nil
		})
		return err
	}, key)
	if err != nil {
		// Fail open on Redis trouble; the write path stays available.
		config.LogError(config.GetLogger(), "guard", "Protect", "redis", userId, err)
		return &Decision{Allowed: true, Remaining: bucketCapacity}, nil
	}

	return decision, nil
}

// Check converts a decision into the error taxonomy callers surface.
func Check(ctx context.Context, userId string, requested int64) error {
	decision, err := Protect(ctx, userId, requested)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}
	return &utils.RateLimitedError{
		Remaining: decision.Remaining,
		ResetIn:   decision.ResetIn,
	}
}
