// Package router wires the anagram service routes and applies the
// middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/handler"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/middleware"
)

// metricRoutes are the paths reported as HTTP metric labels.
var metricRoutes = []string{
	"/api/v1/anagrams/word",
	"/api/v1/anagrams/sentence",
	"/api/v1/occurrences",
	"/api/v1/cache/stats",
	"/api/v1/cache/invalidate",
	"/api/v1/analytics",
	"/api/v1/analytics/snapshots",
	"/api/v1/analytics/snapshots/latest",
	"/health/live",
	"/health/ready",
}

type Deps struct {
	Handler   *handler.Handler
	Analytics *analytics.Handler
	// Snapshots is nil when no analytics store is configured.
	Snapshots *aggregator.Handler
	Health    *health.Checker
	Metrics   *metrics.Metrics
	// Limiter throttles /api/ routes only; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	Timeout time.Duration
}

// New builds the service HTTP handler.
//
// Route table:
//
//	GET    /api/v1/anagrams/word?w=
//	GET    /api/v1/anagrams/sentence?q=&limit=
//	GET    /api/v1/occurrences?q=
//	GET    /api/v1/cache/stats
//	POST   /api/v1/cache/invalidate
//	GET    /api/v1/analytics
//	GET    /api/v1/analytics/snapshots?limit=
//	GET    /api/v1/analytics/snapshots/latest
//	GET    /health/live
//	GET    /health/ready
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → Timeout → [RateLimit on /api/] → mux
func New(d Deps) http.Handler {
	api := http.NewServeMux()
	d.Handler.Register(api)
	if d.Analytics != nil {
		api.HandleFunc("GET /api/v1/analytics", d.Analytics.Stats)
	}
	if d.Snapshots != nil {
		d.Snapshots.Register(api)
	}

	var apiHandler http.Handler = api
	if d.Limiter != nil {
		apiHandler = ratelimit.Middleware(d.Limiter)(apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if d.Health != nil {
		mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())
	}

	var chain http.Handler = mux
	if d.Timeout > 0 {
		chain = middleware.Timeout(d.Timeout)(chain)
	}
	if d.Metrics != nil {
		chain = middleware.Metrics(d.Metrics, metricRoutes...)(chain)
	}
	return middleware.RequestID(chain)
}
