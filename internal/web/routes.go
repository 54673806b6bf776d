package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	tracks, err := h.Journal.ListRecentTracks(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Journal.CountTracksByStatus()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

type enqueueRequest struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	urls := req.URLs
	if req.URL != "" {
		urls = append(urls, req.URL)
	}
	if len(urls) == 0 {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	// The request finishes long before the downloads do; processing runs
	// detached from the request context.
	go func() {
		results := h.Runner.Process(context.Background(), urls)
		for _, res := range results {
			if res.Err != nil {
				h.Logger.Error("track failed", "url", res.SourceURL, "error", res.Err)
			}
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{"queued": len(urls)})
}

func (h *Handler) RunDedupe(w http.ResponseWriter, r *http.Request) {
	merged, err := h.Merger.MergeAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"merged_groups": merged})
}
