// Package analytics records anagram queries, ships them through Kafka, and
// aggregates them into service-wide statistics.
package analytics

import "time"

type EventType string

const (
	EventWordQuery     EventType = "word_query"
	EventSentenceQuery EventType = "sentence_query"
)

// QueryEvent describes one answered (or abandoned) anagram query.
type QueryEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Signature  string    `json:"signature"`
	Results    int       `json:"results"`
	Returned   int       `json:"returned"`
	Candidates int       `json:"candidates"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	TimedOut   bool      `json:"timed_out"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// Tracker accepts query events. Both Collector and Aggregator implement it,
// so the service can run with or without Kafka.
type Tracker interface {
	Track(event QueryEvent)
}
