// Package cache stores solved sentence anagrams in Redis.
//
// Every anagram of a sentence depends only on its occurrence signature, so
// entries are keyed by the signature rather than by the raw query text:
// "Eat tan" and "ant tea" share one entry.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/resilience"
)

const keyPrefix = "anagram:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is the cached outcome of solving one signature.
type Entry struct {
	Signature  string     `json:"signature"`
	Candidates int        `json:"candidates"`
	Covers     int        `json:"covers"`
	Anagrams   [][]string `json:"anagrams"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "anagram-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure: func(err error) bool {
			return !pkgredis.IsNilError(err)
		},
		OnStateChange: func(s resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues("redis-cache").Set(float64(s))
			}
		},
	})
	return c
}

// Get returns the cached entry for sig. Redis errors and an open breaker
// count as misses.
func (c *QueryCache) Get(ctx context.Context, sig occurrence.Occurrence) (*Entry, bool) {
	key := buildKey(sig)
	var entry Entry
	err := c.breaker.Execute(func() error {
		return c.store.GetJSON(ctx, key, &entry)
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "signature", entry.Signature, "key", key)
	return &entry, true
}

// Set stores entry under sig. Failures are logged, never returned.
func (c *QueryCache) Set(ctx context.Context, sig occurrence.Occurrence, entry *Entry) {
	key := buildKey(sig)
	err := c.breaker.Execute(func() error {
		return c.store.SetJSON(ctx, key, entry, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry for sig, or runs compute once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit.
//
// A shared computation is bound to the context of the caller that started
// it. When that context ends while ctx is still live, the caller runs its
// own compute instead of inheriting the cancellation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	sig occurrence.Occurrence,
	compute func() (*Entry, error),
) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, sig); ok {
		return entry, true, nil
	}
	key := buildKey(sig)
	val, err, shared := c.group.Do(key, func() (any, error) {
		return c.computeAndStore(ctx, sig, compute)
	})
	if err != nil && shared && isContextError(err) && ctx.Err() == nil {
		c.logger.Debug("shared computation cancelled, recomputing", "key", key, "error", err)
		val, err = c.computeAndStore(ctx, sig, compute)
	}
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

func (c *QueryCache) computeAndStore(ctx context.Context, sig occurrence.Occurrence, compute func() (*Entry, error)) (any, error) {
	entry, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(ctx, sig, entry)
	return entry, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Invalidate removes every cached anagram entry.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the breaker guarding Redis.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(sig occurrence.Occurrence) string {
	hash := sha256.Sum256([]byte(sig.Key()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
