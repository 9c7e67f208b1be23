package aggregator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
)

const (
	defaultSnapshotLimit = 10
	maxSnapshotLimit     = 100
)

// SnapshotReader is the read side of Store.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error)
	ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error)
}

// Handler serves persisted snapshots over HTTP.
type Handler struct {
	reader SnapshotReader
	logger *slog.Logger
}

func NewHandler(reader SnapshotReader) *Handler {
	return &Handler{
		reader: reader,
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

// Register mounts the snapshot routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.List)
	mux.HandleFunc("GET /api/v1/analytics/snapshots/latest", h.Latest)
}

// List serves up to ?limit= snapshots, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultSnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxSnapshotLimit)
	}

	snapshots, err := h.reader.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing snapshots failed", "error", err)
		h.writeError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []analytics.AggregatedStats{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.reader.LatestSnapshot(r.Context())
	if err != nil {
		h.logger.Error("reading latest snapshot failed", "error", err)
		h.writeError(w, err)
		return
	}
	if latest == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "no snapshots saved yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, latest)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := "internal error"
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
