package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cratekeeper/internal/dedupe"
	"cratekeeper/internal/domain"
	"cratekeeper/internal/notion"
)

type fakeJournal struct {
	counts  map[domain.TrackStatus]int
	missing []*domain.Track
}

func (j *fakeJournal) CountTracksByStatus() (map[domain.TrackStatus]int, error) {
	return j.counts, nil
}

func (j *fakeJournal) ListTracksMissingFeatures() ([]*domain.Track, error) {
	return j.missing, nil
}

type fakeGroups struct {
	groups []dedupe.Group
	err    error
}

func (g *fakeGroups) FindDuplicateGroups(ctx context.Context) ([]dedupe.Group, error) {
	return g.groups, g.err
}

type fakeIssues struct {
	title   string
	details string
}

func (f *fakeIssues) CreateIssue(ctx context.Context, dbID, title, details string) (string, error) {
	f.title = title
	f.details = details
	return "issue-1", nil
}

func sampleJournal() *fakeJournal {
	return &fakeJournal{
		counts: map[domain.TrackStatus]int{
			domain.TrackStatusCompleted: 40,
			domain.TrackStatusFailed:    2,
		},
		missing: []*domain.Track{
			{Title: "Strobe", Artist: "deadmau5", SourceURL: "https://youtube.com/watch?v=abc"},
		},
	}
}

func TestBuildAndRender(t *testing.T) {
	groups := &fakeGroups{groups: []dedupe.Group{
		{Keeper: notion.Page{ID: "K1"}, Donors: []notion.Page{{ID: "D1"}, {ID: "D2"}}},
	}}
	r := New(sampleJournal(), groups, nil, "", nil)

	rep, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := rep.Render()
	for _, want := range []string{
		"completed    40",
		"failed       2",
		"Tracks missing BPM or key: 1",
		"deadmau5 - Strobe",
		"Duplicate groups pending merge: 1",
		"keeper K1 with 2 donor(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuild_DuplicateScanFailureIsNotFatal(t *testing.T) {
	r := New(sampleJournal(), &fakeGroups{err: errors.New("api down")}, nil, "", nil)

	rep, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.DuplicateGroups) != 0 {
		t.Errorf("expected no groups, got %d", len(rep.DuplicateGroups))
	}
}

func TestFile(t *testing.T) {
	issues := &fakeIssues{}
	r := New(sampleJournal(), &fakeGroups{}, issues, "issues-db", nil)

	rep, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	id, err := r.File(context.Background(), rep)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if id != "issue-1" {
		t.Errorf("expected issue id, got %q", id)
	}
	if !strings.Contains(issues.title, "1 tracks missing features") {
		t.Errorf("unexpected title %q", issues.title)
	}
	if !strings.Contains(issues.details, "Library report") {
		t.Error("expected rendered report in details")
	}
}

func TestFile_NoDatabaseConfigured(t *testing.T) {
	r := New(sampleJournal(), nil, nil, "", nil)
	rep, _ := r.Build(context.Background())

	id, err := r.File(context.Background(), rep)
	if err != nil || id != "" {
		t.Errorf("expected silent no-op, got id=%q err=%v", id, err)
	}
}
