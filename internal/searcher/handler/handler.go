// Package handler serves the launcher's HTTP API: ranked search, selection
// feedback and inspection of the ranking context.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/launcher"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/logger"
)

const (
	maxQueryLength = 512
	maxBodyBytes   = 64 << 10
)

// Ranker is the launcher session the handler drives.
type Ranker interface {
	Search(query string, limit int) launcher.Result
	Select(query, itemID string) launcher.Selection
	Snapshot() ranking.Snapshot
	Reset()
	Stats() launcher.Stats
}

// Flusher saves the ranking context on demand.
type Flusher interface {
	Flush(ctx context.Context) error
}

type Handler struct {
	ranker       Ranker
	tracker      analytics.Tracker
	flusher      Flusher
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. tracker and flusher may be nil.
func New(r Ranker, tracker analytics.Tracker, flusher Flusher, defaultLimit, maxResults int) *Handler {
	return &Handler{
		ranker:       r,
		tracker:      tracker,
		flusher:      flusher,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register adds the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/selections", h.Select)
	mux.HandleFunc("GET /api/v1/context", h.Context)
	mux.HandleFunc("DELETE /api/v1/context", h.ResetContext)
	mux.HandleFunc("POST /api/v1/context/flush", h.FlushContext)
}

type searchResponse struct {
	Query      string         `json:"query"`
	Total      int            `json:"total"`
	Returned   int            `json:"returned"`
	LearnedTop bool           `json:"learned_top"`
	Items      []catalog.Item `json:"items"`
}

// Search handles GET /api/v1/search?q=&limit=. An empty q lists the whole
// catalog by recency.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if len(query) > maxQueryLength {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is too long")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.maxResults > 0 && (limit <= 0 || limit > h.maxResults) {
		limit = h.maxResults
	}

	res := h.ranker.Search(query, limit)

	resp := searchResponse{
		Query:      res.Query,
		Total:      res.Total,
		Returned:   len(res.Items),
		LearnedTop: res.LearnedTop,
		Items:      res.Items,
	}
	if resp.Items == nil {
		resp.Items = []catalog.Item{}
	}

	log.Debug("search completed",
		"query", query,
		"total", res.Total,
		"returned", resp.Returned,
		"learned_top", res.LearnedTop,
		"latency", res.Latency,
	)
	if h.tracker != nil {
		eventType := analytics.EventSearch
		if query != "" && res.Total == 0 {
			eventType = analytics.EventZeroResult
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:       eventType,
			Query:      query,
			Returned:   resp.Returned,
			Total:      res.Total,
			LearnedTop: res.LearnedTop,
			EmptyQuery: query == "",
			LatencyUs:  res.Latency.Microseconds(),
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type selectRequest struct {
	Query  string `json:"query"`
	ItemID string `json:"item_id"`
}

// Select handles POST /api/v1/selections.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req selectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": map[string]string{"item_id": "item_id is required"},
		})
		return
	}
	if len(req.Query) > maxQueryLength {
		h.writeError(w, http.StatusBadRequest, "query is too long")
		return
	}

	sel := h.ranker.Select(req.Query, req.ItemID)
	log.Info("selection recorded",
		"query", req.Query,
		"item_id", sel.ItemID,
		"rank", sel.Rank,
		"top_changed", sel.TopChanged,
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.SelectionEvent{
			Type:         analytics.EventSelection,
			Query:        req.Query,
			ItemID:       sel.ItemID,
			Rank:         sel.Rank,
			TopChanged:   sel.TopChanged,
			LearnedCount: sel.LearnedCount,
			Timestamp:    time.Now().UTC(),
			RequestID:    logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, sel)
}

// Context handles GET /api/v1/context.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":    h.ranker.Stats(),
		"snapshot": h.ranker.Snapshot(),
	})
}

// ResetContext handles DELETE /api/v1/context.
func (h *Handler) ResetContext(w http.ResponseWriter, r *http.Request) {
	h.ranker.Reset()
	logger.FromContext(r.Context()).Info("ranking context reset over http")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// FlushContext handles POST /api/v1/context/flush.
func (h *Handler) FlushContext(w http.ResponseWriter, r *http.Request) {
	if h.flusher == nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrDisabled, http.StatusServiceUnavailable, "persistence is not configured"))
		return
	}
	if err := h.flusher.Flush(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("flushing ranking context", "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.PublicMessage(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
