// Package dedupe decides whether a processed track already exists, on two
// fronts: the catalog (fuzzy multi-signal matching before import) and the
// metadata store (equality-keyed duplicate groups merged into one keeper).
package dedupe

import (
	"context"
	"fmt"
	"path/filepath"

	"cratekeeper/internal/catalog"
	"cratekeeper/internal/domain"
	"cratekeeper/internal/eagle"
	"cratekeeper/internal/logger"
	"cratekeeper/internal/match"
	"cratekeeper/internal/notion"
)

// CatalogService is the slice of the Eagle client the resolver writes
// through.
type CatalogService interface {
	AddFromPath(ctx context.Context, add eagle.AddItemRequest) (string, error)
	UpdateTags(ctx context.Context, id string, tags []string) error
	MoveToTrash(ctx context.Context, ids []string) error
}

// MetadataStore is the slice of the Notion client the resolver needs.
type MetadataStore interface {
	QueryDatabase(ctx context.Context, databaseID string, opts notion.QueryOptions) ([]notion.Page, error)
	CreatePage(ctx context.Context, databaseID string, props map[string]notion.Property) (string, error)
	UpdatePage(ctx context.Context, pageID string, props map[string]notion.Property) error
	ArchivePage(ctx context.Context, pageID string) error
}

// Resolver orchestrates duplicate detection and resolution.
type Resolver struct {
	scorer   *match.Scorer
	index    *catalog.Index
	catalog  CatalogService
	meta     MetadataStore
	tracksDB string
	folderID string
	log      *logger.Logger
}

func NewResolver(
	scorer *match.Scorer,
	index *catalog.Index,
	cat CatalogService,
	meta MetadataStore,
	tracksDB, folderID string,
	log *logger.Logger,
) *Resolver {
	if log == nil {
		log = logger.Default()
	}
	return &Resolver{
		scorer:   scorer,
		index:    index,
		catalog:  cat,
		meta:     meta,
		tracksDB: tracksDB,
		folderID: folderID,
		log:      log.WithComponent("dedupe"),
	}
}

// FindExisting scores a track's metadata against the catalog. A nil result
// means "proceed as new"; the scorer never errors, it fails open through a
// possibly stale or empty index.
func (r *Resolver) FindExisting(ctx context.Context, track *domain.Track) *match.Candidate {
	best, _ := r.scorer.FindBestMatch(ctx, queryForTrack(track))
	return best
}

// KnownCompletedPage returns the id of a metadata-store page that already
// records this source URL with the download marked complete, or "" when none
// does. Store errors read as a miss; this check only saves a download.
func (r *Resolver) KnownCompletedPage(ctx context.Context, track *domain.Track) string {
	pages, err := r.meta.QueryDatabase(ctx, r.tracksDB, notion.QueryOptions{
		Filter:     notion.URLEquals(propSourceURL, track.SourceURL),
		MaxResults: 1,
	})
	if err != nil {
		r.log.Warn("metadata store lookup failed, proceeding as new", "error", err)
		return ""
	}
	if len(pages) == 0 || !pages[0].Properties[propComplete].Checkbox {
		return ""
	}
	return pages[0].ID
}

// EnsureCatalogEntry imports the track's primary file into the catalog
// unless a matching entry already exists. On a match the existing entry's
// tags are refreshed with the newly computed ones and its id is returned
// with existed=true. Tag-refresh failures are logged and swallowed; a
// failed import is surfaced.
func (r *Resolver) EnsureCatalogEntry(ctx context.Context, track *domain.Track, importPath string) (string, bool, error) {
	freshTags := catalog.BuildTags(track.Fingerprint, track.BPM, track.DurationSec, track.Key, track.Genre)

	if best := r.FindExisting(ctx, track); best != nil {
		log := r.log.WithEntry(best.Entry.ID, best.Entry.Name)
		log.Info("catalog entry already exists, refreshing tags", "score", best.Total)

		merged := catalog.MergeTags(best.Entry.Tags, freshTags)
		if err := r.catalog.UpdateTags(ctx, best.Entry.ID, merged); err != nil {
			log.Warn("failed to refresh tags on existing entry", "error", err)
		} else {
			r.index.Invalidate()
		}
		return best.Entry.ID, true, nil
	}

	id, err := r.catalog.AddFromPath(ctx, eagle.AddItemRequest{
		Path:     importPath,
		Name:     track.DisplayName(),
		Website:  track.SourceURL,
		Tags:     freshTags,
		FolderID: r.folderID,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to import %s into catalog: %w", importPath, err)
	}
	r.index.Invalidate()
	return id, false, nil
}

// SyncMetadata creates or updates the track's page in the metadata store
// and returns its id. Existing pages are found by source URL equality.
func (r *Resolver) SyncMetadata(ctx context.Context, track *domain.Track) (string, error) {
	props := TrackProperties(track)

	if track.NotionID != "" {
		return track.NotionID, r.writeWithRetry(ctx, track.NotionID, props)
	}

	pages, err := r.meta.QueryDatabase(ctx, r.tracksDB, notion.QueryOptions{
		Filter:     notion.URLEquals(propSourceURL, track.SourceURL),
		MaxResults: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to query metadata store: %w", err)
	}

	if len(pages) > 0 {
		pageID := pages[0].ID
		return pageID, r.writeWithRetry(ctx, pageID, props)
	}
	return r.meta.CreatePage(ctx, r.tracksDB, props)
}

// writeWithRetry patches a page, retrying once with a reduced property set
// when the first write is rejected. Select-like properties can fail on
// store-side option limits; the retry drops them so the core fields still
// land.
func (r *Resolver) writeWithRetry(ctx context.Context, pageID string, props map[string]notion.Property) error {
	err := r.meta.UpdatePage(ctx, pageID, props)
	if err == nil {
		return nil
	}

	safe := safeSubset(props)
	if len(safe) == len(props) {
		return err
	}
	r.log.Warn("metadata write rejected, retrying with reduced property set",
		"page_id", pageID, "error", err)
	if retryErr := r.meta.UpdatePage(ctx, pageID, safe); retryErr != nil {
		return fmt.Errorf("metadata write failed after retry: %w", retryErr)
	}
	return nil
}

func safeSubset(props map[string]notion.Property) map[string]notion.Property {
	safe := make(map[string]notion.Property, len(props))
	for name, p := range props {
		switch p.Kind {
		case notion.KindSelect, notion.KindMultiSelect, notion.KindRelation:
			continue
		default:
			safe[name] = p
		}
	}
	return safe
}

func queryForTrack(track *domain.Track) match.Query {
	q := match.Query{
		Fingerprint: track.Fingerprint,
		Title:       track.Title,
		Artist:      track.Artist,
		DurationSec: track.DurationSec,
		BPM:         track.BPM,
		Key:         track.Key,
	}
	// Fixed format order so the filename signal does not depend on map
	// iteration.
	for _, format := range []string{"wav", "aiff", "flac", "m4a", "mp3"} {
		if path, ok := track.Paths[format]; ok {
			q.Filename = filepath.Base(path)
			break
		}
	}
	return q
}
