package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries     int64        `json:"total_queries"`
	WordQueries      int64        `json:"word_queries"`
	SentenceQueries  int64        `json:"sentence_queries"`
	CacheHits        int64        `json:"cache_hits"`
	CacheMisses      int64        `json:"cache_misses"`
	UnmatchedCount   int64        `json:"unmatched_count"`
	TimeoutCount     int64        `json:"timeout_count"`
	TotalAnagrams    int64        `json:"total_anagrams"`
	AvgLatencyMs     float64      `json:"avg_latency_ms"`
	P50LatencyMs     int64        `json:"p50_latency_ms"`
	P95LatencyMs     int64        `json:"p95_latency_ms"`
	P99LatencyMs     int64        `json:"p99_latency_ms"`
	TopQueries       []QueryCount `json:"top_queries"`
	TopSignatures    []QueryCount `json:"top_signatures"`
	UnmatchedQueries []QueryCount `json:"unmatched_queries"`
	QueriesPerMinute float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds query events into running statistics.
type Aggregator struct {
	mu               sync.RWMutex
	stats            AggregatedStats
	latencies        []int64
	next             int
	queryCounts      map[string]int64
	signatureCounts  map[string]int64
	unmatchedQueries map[string]int64
	startTime        time.Time
	now              func() time.Time
	logger           *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:        make([]int64, 0, maxLatencySamples),
		queryCounts:      make(map[string]int64),
		signatureCounts:  make(map[string]int64),
		unmatchedQueries: make(map[string]int64),
		startTime:        time.Now(),
		now:              time.Now,
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// Track records event directly, for deployments without Kafka.
func (a *Aggregator) Track(event QueryEvent) {
	a.record(event)
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped.
func (a *Aggregator) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Warn("skipping undecodable analytics event", "key", string(key), "error", err)
			return nil
		}
		a.record(event)
		return nil
	}
}

func (a *Aggregator) record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalQueries++
	switch event.Type {
	case EventWordQuery:
		a.stats.WordQueries++
	case EventSentenceQuery:
		a.stats.SentenceQueries++
	}
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if event.TimedOut {
		a.stats.TimeoutCount++
	} else if event.Results == 0 {
		a.stats.UnmatchedCount++
		a.unmatchedQueries[event.Query]++
	}
	a.stats.TotalAnagrams += int64(event.Results)

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.queryCounts[event.Query]++
	if event.Signature != "" {
		a.signatureCounts[event.Signature]++
	}
}

// Stats returns a point-in-time copy of the aggregated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.TopSignatures = topN(a.signatureCounts, 10)
	stats.UnmatchedQueries = topN(a.unmatchedQueries, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := min((pct*len(sorted))/100, len(sorted)-1)
	return sorted[idx]
}

// topN returns the n most frequent entries, ties broken by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Query, y.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
