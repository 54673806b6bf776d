// Package report summarizes the state of the library: processing counts,
// tracks with missing musical features and pending duplicate groups. The
// summary prints to a writer and can be filed as an issue in the metadata
// store.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cratekeeper/internal/dedupe"
	"cratekeeper/internal/domain"
	"cratekeeper/internal/logger"
)

// Journal is the read side of the track store the report draws from.
type Journal interface {
	CountTracksByStatus() (map[domain.TrackStatus]int, error)
	ListTracksMissingFeatures() ([]*domain.Track, error)
}

// GroupFinder scans the metadata store for duplicate groups.
type GroupFinder interface {
	FindDuplicateGroups(ctx context.Context) ([]dedupe.Group, error)
}

// IssueFiler creates issue pages in the metadata store.
type IssueFiler interface {
	CreateIssue(ctx context.Context, issuesDatabaseID, title, details string) (string, error)
}

// Report is one snapshot of library health.
type Report struct {
	Counts          map[domain.TrackStatus]int
	MissingFeatures []*domain.Track
	DuplicateGroups []dedupe.Group
}

type Reporter struct {
	journal  Journal
	groups   GroupFinder
	issues   IssueFiler
	issuesDB string
	log      *logger.Logger
}

func New(journal Journal, groups GroupFinder, issues IssueFiler, issuesDB string, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.Default()
	}
	return &Reporter{
		journal:  journal,
		groups:   groups,
		issues:   issues,
		issuesDB: issuesDB,
		log:      log.WithComponent("report"),
	}
}

// Build assembles the report. The duplicate scan is optional; when it
// fails the report still carries the journal-derived sections.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	counts, err := r.journal.CountTracksByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count tracks: %w", err)
	}

	missing, err := r.journal.ListTracksMissingFeatures()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks missing features: %w", err)
	}

	rep := &Report{Counts: counts, MissingFeatures: missing}

	if r.groups != nil {
		groups, err := r.groups.FindDuplicateGroups(ctx)
		if err != nil {
			r.log.Warn("duplicate scan failed, omitting from report", "error", err)
		} else {
			rep.DuplicateGroups = groups
		}
	}
	return rep, nil
}

// Render formats the report as plain text.
func (rep *Report) Render() string {
	var b strings.Builder

	b.WriteString("Library report\n")
	b.WriteString("==============\n\n")

	b.WriteString("Tracks by status:\n")
	statuses := make([]string, 0, len(rep.Counts))
	for status := range rep.Counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(&b, "  %-12s %d\n", status, rep.Counts[domain.TrackStatus(status)])
	}

	fmt.Fprintf(&b, "\nTracks missing BPM or key: %d\n", len(rep.MissingFeatures))
	for _, t := range rep.MissingFeatures {
		fmt.Fprintf(&b, "  - %s (%s)\n", t.DisplayName(), t.SourceURL)
	}

	fmt.Fprintf(&b, "\nDuplicate groups pending merge: %d\n", len(rep.DuplicateGroups))
	for _, g := range rep.DuplicateGroups {
		fmt.Fprintf(&b, "  - keeper %s with %d donor(s)\n", g.Keeper.ID, len(g.Donors))
	}
	return b.String()
}

// File creates an issue page carrying the rendered report and returns its
// id. Filing is a no-op when no issues database is configured.
func (r *Reporter) File(ctx context.Context, rep *Report) (string, error) {
	if r.issues == nil || r.issuesDB == "" {
		return "", nil
	}
	title := fmt.Sprintf("Library report: %d tracks missing features, %d duplicate groups",
		len(rep.MissingFeatures), len(rep.DuplicateGroups))
	id, err := r.issues.CreateIssue(ctx, r.issuesDB, title, rep.Render())
	if err != nil {
		return "", fmt.Errorf("failed to file report issue: %w", err)
	}
	r.log.Info("filed report issue", "page_id", id)
	return id, nil
}
