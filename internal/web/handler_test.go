package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"cratekeeper/internal/domain"
	"cratekeeper/internal/pipeline"
)

type fakeJournal struct {
	tracks []*domain.Track
	counts map[domain.TrackStatus]int
}

func (j *fakeJournal) ListRecentTracks(limit int) ([]*domain.Track, error) {
	if limit < len(j.tracks) {
		return j.tracks[:limit], nil
	}
	return j.tracks, nil
}

func (j *fakeJournal) CountTracksByStatus() (map[domain.TrackStatus]int, error) {
	return j.counts, nil
}

type fakeRunner struct {
	mu   sync.Mutex
	urls []string
	done chan struct{}
}

func (r *fakeRunner) Process(ctx context.Context, urls []string) []pipeline.Result {
	r.mu.Lock()
	r.urls = append(r.urls, urls...)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return make([]pipeline.Result, len(urls))
}

type fakeMerger struct {
	merged int
}

func (m *fakeMerger) MergeAll(ctx context.Context) (int, error) {
	return m.merged, nil
}

func testRouter(journal *fakeJournal, runner *fakeRunner, merger *fakeMerger) chi.Router {
	r := chi.NewRouter()
	NewHandler(journal, runner, merger, nil).RegisterRoutes(r)
	return r
}

func TestHealthz(t *testing.T) {
	r := testRouter(&fakeJournal{}, &fakeRunner{}, &fakeMerger{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListTracks(t *testing.T) {
	journal := &fakeJournal{tracks: []*domain.Track{
		{ID: "1", Title: "Strobe"},
		{ID: "2", Title: "Ghosts 'n' Stuff"},
	}}
	r := testRouter(journal, &fakeRunner{}, &fakeMerger{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Tracks []*domain.Track `json:"tracks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tracks) != 1 || body.Tracks[0].ID != "1" {
		t.Errorf("unexpected tracks: %+v", body.Tracks)
	}
}

func TestListTracks_BadLimit(t *testing.T) {
	r := testRouter(&fakeJournal{}, &fakeRunner{}, &fakeMerger{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks?limit=zero", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEnqueue(t *testing.T) {
	runner := &fakeRunner{done: make(chan struct{})}
	r := testRouter(&fakeJournal{}, runner, &fakeMerger{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tracks",
		strings.NewReader(`{"url":"https://youtube.com/watch?v=abc"}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	<-runner.done
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.urls) != 1 || runner.urls[0] != "https://youtube.com/watch?v=abc" {
		t.Errorf("unexpected urls: %v", runner.urls)
	}
}

func TestEnqueue_RequiresURL(t *testing.T) {
	r := testRouter(&fakeJournal{}, &fakeRunner{}, &fakeMerger{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tracks", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunDedupe(t *testing.T) {
	r := testRouter(&fakeJournal{}, &fakeRunner{}, &fakeMerger{merged: 3})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dedupe", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["merged_groups"] != 3 {
		t.Errorf("expected 3 merged groups, got %d", body["merged_groups"])
	}
}
