package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/resilience"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) GetJSON(_ context.Context, key string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return s.failGet
	}
	b, ok := s.data[key]
	if !ok {
		return goredis.Nil
	}
	return json.Unmarshal(b, dst)
}

func (s *memStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = b
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func TestKeyDependsOnlyOnSignature(t *testing.T) {
	a := buildKey(occurrence.SentenceOccurrences([]string{"Eat", "tan"}))
	b := buildKey(occurrence.SentenceOccurrences([]string{"ant", "tea"}))
	c := buildKey(occurrence.SentenceOccurrences([]string{"tea"}))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^anagram:[0-9a-f]{32}$`, a)
}

func TestGetOrComputeCachesBySignature(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(newMemStore(), time.Minute, m)
	ctx := context.Background()

	calls := 0
	compute := func() (*Entry, error) {
		calls++
		return &Entry{Signature: "aent", Anagrams: [][]string{{"neat"}}}, nil
	}

	first, hit, err := c.GetOrCompute(ctx, occurrence.WordOccurrences("neat"), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, [][]string{{"neat"}}, first.Anagrams)

	second, hit, err := c.GetOrCompute(ctx, occurrence.WordOccurrences("ante"), compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), occurrence.WordOccurrences("ab"), func() (*Entry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), occurrence.WordOccurrences("ab"))
	assert.False(t, ok)
}

func TestGetOrComputeCollapsesConcurrentCalls(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	sig := occurrence.WordOccurrences("listen")
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), sig, func() (*Entry, error) {
				calls.Add(1)
				<-release
				return &Entry{Signature: sig.Key()}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	_, ok := c.Get(context.Background(), sig)
	assert.True(t, ok)
}

func TestGetOrComputeSurvivesLeaderCancellation(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	sig := occurrence.WordOccurrences("silent")

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	started := make(chan struct{})
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(leaderCtx, sig, func() (*Entry, error) {
			close(started)
			<-leaderCtx.Done()
			return nil, leaderCtx.Err()
		})
		leaderErr <- err
	}()
	<-started

	type result struct {
		entry *Entry
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		entry, _, err := c.GetOrCompute(context.Background(), sig, func() (*Entry, error) {
			return &Entry{Signature: sig.Key(), Anagrams: [][]string{{"listen"}}}, nil
		})
		follower <- result{entry, err}
	}()
	time.Sleep(50 * time.Millisecond)
	cancelLeader()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, [][]string{{"listen"}}, got.entry.Anagrams)

	_, ok := c.Get(context.Background(), sig)
	assert.True(t, ok)
}

func TestStoreFailuresTripBreaker(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("connection refused")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(store, time.Minute, m)

	for range 5 {
		_, ok := c.Get(context.Background(), occurrence.WordOccurrences("a"))
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())
	assert.Equal(t, float64(resilience.StateOpen),
		testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))

	_, _, err := c.GetOrCompute(context.Background(), occurrence.WordOccurrences("a"), func() (*Entry, error) {
		return &Entry{Signature: "a"}, nil
	})
	assert.NoError(t, err, "an open breaker falls back to computing")
}

func TestMissesDoNotTripBreaker(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	for range 10 {
		c.Get(context.Background(), occurrence.WordOccurrences("zz"))
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["other:key"] = []byte(`1`)
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, occurrence.WordOccurrences("ab"), &Entry{Signature: "ab"})
	c.Set(ctx, occurrence.WordOccurrences("abc"), &Entry{Signature: "abc"})

	deleted, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Contains(t, store.data, "other:key")
}

func TestRedisRoundTrip(t *testing.T) {
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: "localhost:6379", PoolSize: 2})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	c := New(client, time.Minute, nil)
	ctx := context.Background()
	sig := occurrence.SentenceOccurrences([]string{"yes", "man"})
	c.Set(ctx, sig, &Entry{Signature: sig.Key(), Anagrams: [][]string{{"yes", "man"}}})

	got, ok := c.Get(ctx, sig)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"yes", "man"}}, got.Anagrams)

	_, err = c.Invalidate(ctx)
	require.NoError(t, err)
	_, ok = c.Get(ctx, sig)
	assert.False(t, ok)
}
