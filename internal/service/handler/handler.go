// Package handler serves the anagram HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/solver"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/cache"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/tracing"
)

type WordIndex interface {
	WordAnagrams(word string) []string
}

type SentenceSolver interface {
	Solve(ctx context.Context, sentence []string) (*solver.Result, error)
}

type WordResponse struct {
	Word      string   `json:"word"`
	Signature string   `json:"signature"`
	Anagrams  []string `json:"anagrams"`
}

type SentenceResponse struct {
	Sentence   string     `json:"sentence"`
	Signature  string     `json:"signature"`
	Total      int        `json:"total"`
	Returned   int        `json:"returned"`
	Candidates int        `json:"candidates"`
	Anagrams   [][]string `json:"anagrams"`
	CacheHit   bool       `json:"cache_hit"`
	TookMs     int64      `json:"took_ms"`
}

type CharCount struct {
	Char  string `json:"char"`
	Count int    `json:"count"`
}

type OccurrenceResponse struct {
	Query        string      `json:"query"`
	Signature    string      `json:"signature"`
	Length       int         `json:"length"`
	Occurrences  []CharCount `json:"occurrences"`
	Combinations int         `json:"combinations"`
}

type Handler struct {
	index   WordIndex
	solver  SentenceSolver
	cache   *cache.QueryCache
	tracker analytics.Tracker
	metrics *metrics.Metrics
	cfg     config.SolverConfig
	logger  *slog.Logger
}

// New creates a Handler. queryCache, tracker, and m may be nil.
func New(
	index WordIndex,
	s SentenceSolver,
	queryCache *cache.QueryCache,
	tracker analytics.Tracker,
	m *metrics.Metrics,
	cfg config.SolverConfig,
) *Handler {
	return &Handler{
		index:   index,
		solver:  s,
		cache:   queryCache,
		tracker: tracker,
		metrics: m,
		cfg:     cfg,
		logger:  slog.Default().With("component", "anagram-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/anagrams/word", h.Word)
	mux.HandleFunc("GET /api/v1/anagrams/sentence", h.Sentence)
	mux.HandleFunc("GET /api/v1/occurrences", h.Occurrences)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Word(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	word := strings.TrimSpace(r.URL.Query().Get("w"))
	if word == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'w' is required"))
		return
	}

	sig := occurrence.WordOccurrences(word)
	anagrams := h.index.WordAnagrams(word)
	h.observeQuery("word", outcomeFor(len(anagrams)))
	h.track(r.Context(), analytics.QueryEvent{
		Type:      analytics.EventWordQuery,
		Query:     word,
		Signature: sig.Key(),
		Results:   len(anagrams),
		Returned:  len(anagrams),
		LatencyMs: time.Since(start).Milliseconds(),
	})

	h.writeJSON(w, http.StatusOK, WordResponse{
		Word:      word,
		Signature: sig.Key(),
		Anagrams:  anagrams,
	})
}

// Sentence answers every anagram sentence of q. A present but blank q is
// the empty sentence, whose only anagram is the empty sentence.
func (h *Handler) Sentence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	query := params.Get("q")
	sentence := strings.Fields(query)

	limit, err := h.parseLimit(params.Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	ctx := r.Context()
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}
	ctx, span := tracing.Start(ctx, "sentence")
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	sig := occurrence.SentenceOccurrences(sentence)
	compute := func() (*cache.Entry, error) {
		res, err := h.solver.Solve(ctx, sentence)
		if err != nil {
			return nil, err
		}
		return &cache.Entry{
			Signature:  res.Signature.Key(),
			Candidates: res.Candidates,
			Covers:     res.Covers,
			Anagrams:   res.Anagrams,
		}, nil
	}

	var (
		entry    *cache.Entry
		cacheHit bool
	)
	if h.cache != nil {
		entry, cacheHit, err = h.cache.GetOrCompute(ctx, sig, compute)
	} else {
		entry, err = compute()
	}
	took := time.Since(start)
	span.SetAttr("cache_hit", cacheHit)

	event := analytics.QueryEvent{
		Type:      analytics.EventSentenceQuery,
		Query:     query,
		Signature: sig.Key(),
		LatencyMs: took.Milliseconds(),
		CacheHit:  cacheHit,
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("sentence search timed out", "query", query, "timeout", h.cfg.Timeout)
			h.observeQuery("sentence", "timeout")
			event.TimedOut = true
			h.track(r.Context(), event)
			h.writeError(w, apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable,
				"search exceeded %s; try a shorter sentence", h.cfg.Timeout))
			return
		}
		log.Error("sentence search failed", "query", query, "error", err)
		h.observeQuery("sentence", "error")
		h.writeError(w, fmt.Errorf("solving %q: %w", query, err))
		return
	}

	total := len(entry.Anagrams)
	returned := entry.Anagrams
	if len(returned) > limit {
		returned = returned[:limit]
	}

	h.observeQuery("sentence", outcomeFor(total))
	if h.metrics != nil {
		status := "miss"
		if cacheHit {
			status = "hit"
		}
		h.metrics.SolveDuration.WithLabelValues(status).Observe(took.Seconds())
		h.metrics.AnagramResultsCount.Observe(float64(total))
		if !cacheHit {
			h.metrics.CandidateWords.Observe(float64(entry.Candidates))
		}
	}
	event.Results = total
	event.Returned = len(returned)
	event.Candidates = entry.Candidates
	h.track(r.Context(), event)

	log.Info("sentence solved",
		"query", query,
		"total", total,
		"returned", len(returned),
		"cache_hit", cacheHit,
		"latency_ms", took.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, SentenceResponse{
		Sentence:   query,
		Signature:  entry.Signature,
		Total:      total,
		Returned:   len(returned),
		Candidates: entry.Candidates,
		Anagrams:   returned,
		CacheHit:   cacheHit,
		TookMs:     took.Milliseconds(),
	})
}

func (h *Handler) Occurrences(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	occ := occurrence.SentenceOccurrences(strings.Fields(query))
	counts := make([]CharCount, len(occ))
	for i, c := range occ {
		counts[i] = CharCount{Char: string(c.Char), Count: c.N}
	}
	h.writeJSON(w, http.StatusOK, OccurrenceResponse{
		Query:        query,
		Signature:    occ.Key(),
		Length:       occ.Len(),
		Occurrences:  counts,
		Combinations: occurrence.CountCombinations(occ),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	limit := h.cfg.DefaultLimit
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}
	if limit < 1 {
		limit = 1
	}
	return limit, nil
}

func (h *Handler) observeQuery(kind, outcome string) {
	if h.metrics != nil {
		h.metrics.AnagramQueriesTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func (h *Handler) track(ctx context.Context, event analytics.QueryEvent) {
	if h.tracker == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.tracker.Track(event)
}

func outcomeFor(results int) string {
	if results == 0 {
		return "none"
	}
	return "found"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Only AppError messages reach the
// client; anything else is reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := "internal error"
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
