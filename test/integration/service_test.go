// Package integration contains tests that verify the interaction between
// service components. These tests use httptest servers with the real router
// and handler wiring; Postgres- and Redis-backed cases skip when those
// services are unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/solver"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/cache"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/handler"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/router"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/redis"
)

var testWords = []string{"yes", "man", "say", "men", "as", "my", "en", "Sean", "eat", "tea", "ate"}

type stack struct {
	srv *httptest.Server
	agg *analytics.Aggregator
}

func newStack(t *testing.T, idx *dictionary.Index, qc *cache.QueryCache, limiter *ratelimit.Limiter) *stack {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	agg := analytics.NewAggregator()
	checker := health.NewChecker()
	checker.Register("dictionary", true, func(context.Context) error { return nil })

	h := handler.New(idx, solver.New(idx, 4), qc, agg, m, config.SolverConfig{
		Parallelism:  4,
		Timeout:      5 * time.Second,
		DefaultLimit: 100,
		MaxResults:   1000,
	})
	srv := httptest.NewServer(router.New(router.Deps{
		Handler:   h,
		Analytics: analytics.NewHandler(agg),
		Health:    checker,
		Metrics:   m,
		Limiter:   limiter,
		Timeout:   10 * time.Second,
	}))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, agg: agg}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestSentenceThroughRouter(t *testing.T) {
	st := newStack(t, dictionary.NewIndex(testWords), nil, nil)

	var got handler.SentenceResponse
	resp := getJSON(t, st.srv.URL+"/api/v1/anagrams/sentence?q=yes+man", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Contains(t, got.Anagrams, []string{"say", "men"})

	var stats analytics.AggregatedStats
	getJSON(t, st.srv.URL+"/api/v1/analytics", &stats)
	assert.Equal(t, int64(1), stats.SentenceQueries)

	var report health.Report
	resp = getJSON(t, st.srv.URL+"/health/ready", &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, health.StatusUp, report.Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	st := newStack(t, dictionary.NewIndex(testWords), nil, nil)
	req, err := http.NewRequest(http.MethodGet, st.srv.URL+"/api/v1/anagrams/word?w=tea", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "it-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "it-123", resp.Header.Get(middleware.RequestIDHeader))
}

func TestRateLimitingSparesHealth(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	t.Cleanup(limiter.Stop)
	st := newStack(t, dictionary.NewIndex(testWords), nil, limiter)

	for i := range 2 {
		resp := getJSON(t, st.srv.URL+"/api/v1/anagrams/word?w=tea", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i)
	}
	resp := getJSON(t, st.srv.URL+"/api/v1/anagrams/word?w=tea", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = getJSON(t, st.srv.URL+"/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostgresDictionary(t *testing.T) {
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	const table = "dictionary_words_it"
	_, err = db.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (position BIGSERIAL PRIMARY KEY, word TEXT NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, dictionary.Import(ctx, db, table, testWords))

	src, err := dictionary.NewSource(config.DictionaryConfig{Source: config.DictionarySourcePostgres, Table: table}, db)
	require.NoError(t, err)
	idx, err := dictionary.Build(ctx, src)
	require.NoError(t, err)
	st := newStack(t, idx, nil, nil)

	var got handler.WordResponse
	getJSON(t, st.srv.URL+"/api/v1/anagrams/word?w=ate", &got)
	assert.Equal(t, []string{"eat", "tea", "ate"}, got.Anagrams)
}

func TestRedisCache(t *testing.T) {
	client, err := pkgredis.NewClient(config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	qc := cache.New(client, time.Minute, nil)
	_, err = qc.Invalidate(context.Background())
	require.NoError(t, err)
	st := newStack(t, dictionary.NewIndex(testWords), qc, nil)

	var first, second handler.SentenceResponse
	getJSON(t, st.srv.URL+"/api/v1/anagrams/sentence?q=yes+man", &first)
	getJSON(t, st.srv.URL+"/api/v1/anagrams/sentence?q=my+Sean", &second)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Anagrams, second.Anagrams)
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "anagrams_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "anagrams"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
