// Package handler exposes catalog sources over HTTP. Writes go to a
// catalog.Sink: the local store in direct mode or the Kafka publisher when
// sources are shared through the catalog-updates topic.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/logger"
)

const maxUploadBytes = 8 << 20

// Registry answers questions about the sources currently loaded.
// *catalog.Store implements it.
type Registry interface {
	Sources() []catalog.SourceInfo
	Has(sourceID string) bool
}

type Handler struct {
	sink     catalog.Sink
	registry Registry
	logger   *slog.Logger
}

func New(sink catalog.Sink, registry Registry) *Handler {
	return &Handler{
		sink:     sink,
		registry: registry,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// Register adds the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sources", h.List)
	mux.HandleFunc("PUT /api/v1/sources/{id}", h.Put)
	mux.HandleFunc("DELETE /api/v1/sources/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"sources": h.registry.Sources()})
}

type putRequest struct {
	Items []catalog.Item `json:"items"`
}

// Put replaces every item of the source named in the path.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req putRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	update := catalog.SourceUpdate{Source: r.PathValue("id"), Items: req.Items}
	if err := h.sink.Apply(ctx, update); err != nil {
		h.handleApplyError(w, r, err)
		return
	}
	log.Info("source uploaded", "source", update.Source, "items", len(update.Items))
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"source": update.Source,
		"items":  len(update.Items),
		"status": "accepted",
	})
}

// Delete removes the source named in the path.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.registry.Has(id) {
		h.writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err := h.sink.Apply(r.Context(), catalog.SourceUpdate{Source: id, Deleted: true}); err != nil {
		h.handleApplyError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("source deleted", "source", id)
	h.writeJSON(w, http.StatusAccepted, map[string]string{"source": id, "status": "deleted"})
}

func (h *Handler) handleApplyError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *catalog.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	statusCode := apperrors.HTTPStatusCode(err)
	logger.FromContext(r.Context()).Error("applying source update failed",
		"error", err,
		"status_code", statusCode,
	)
	h.writeError(w, statusCode, apperrors.PublicMessage(err))
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
