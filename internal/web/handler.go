// Package web exposes the control API for the serve command: health,
// journal listing, enqueueing URLs and triggering a duplicate scan.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cratekeeper/internal/domain"
	"cratekeeper/internal/logger"
	"cratekeeper/internal/pipeline"
)

// Journal is the read side of the track store the API serves.
type Journal interface {
	ListRecentTracks(limit int) ([]*domain.Track, error)
	CountTracksByStatus() (map[domain.TrackStatus]int, error)
}

// Runner processes a batch of source URLs.
type Runner interface {
	Process(ctx context.Context, urls []string) []pipeline.Result
}

// Merger runs the duplicate scan over the metadata store.
type Merger interface {
	MergeAll(ctx context.Context) (int, error)
}

type Handler struct {
	Journal Journal
	Runner  Runner
	Merger  Merger
	Logger  *logger.Logger
}

func NewHandler(journal Journal, runner Runner, merger Merger, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Journal: journal,
		Runner:  runner,
		Merger:  merger,
		Logger:  log.WithComponent("web"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Get("/api/tracks", h.ListTracks)
	r.Get("/api/stats", h.Stats)
	r.Post("/api/tracks", h.Enqueue)
	r.Post("/api/dedupe", h.RunDedupe)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
