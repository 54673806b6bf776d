package dedupe

import (
	"context"
	"fmt"
	"sort"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/notion"
)

// Group is a cluster of metadata-store pages judged to be the same track,
// with the elected keeper first.
type Group struct {
	Keeper notion.Page
	Donors []notion.Page
}

// FindDuplicateGroups scans a bounded window of recently edited pages and
// clusters them by equality on normalized source URL, platform id, or
// cleaned title. Pages sharing any one key are grouped transitively.
func (r *Resolver) FindDuplicateGroups(ctx context.Context) ([]Group, error) {
	pages, err := r.meta.QueryDatabase(ctx, r.tracksDB, notion.QueryOptions{
		RecentFirst: true,
		MaxResults:  constants.DedupeWindowSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata store: %w", err)
	}

	records := make([]record, 0, len(pages))
	for _, p := range pages {
		if p.Archived {
			continue
		}
		records = append(records, newRecord(p))
	}

	uf := newUnionFind(len(records))
	byURL := make(map[string]int)
	byPlatformID := make(map[string]int)
	byTitle := make(map[string]int)
	for i, rec := range records {
		if rec.sourceURL != "" {
			if j, ok := byURL[rec.sourceURL]; ok {
				uf.union(i, j)
			} else {
				byURL[rec.sourceURL] = i
			}
		}
		if rec.platformID != "" {
			if j, ok := byPlatformID[rec.platformID]; ok {
				uf.union(i, j)
			} else {
				byPlatformID[rec.platformID] = i
			}
		}
		if rec.cleanTitle != "" {
			if j, ok := byTitle[rec.cleanTitle]; ok {
				uf.union(i, j)
			} else {
				byTitle[rec.cleanTitle] = i
			}
		}
	}

	var groups []Group
	for _, indexes := range uf.groups() {
		members := make([]notion.Page, 0, len(indexes))
		for _, i := range indexes {
			members = append(members, records[i].page)
		}
		groups = append(groups, electKeeper(members))
	}
	return groups, nil
}

// electKeeper orders a group by keeper score descending, breaking ties on
// most recent edit.
func electKeeper(members []notion.Page) Group {
	sort.SliceStable(members, func(i, j int) bool {
		si, sj := keeperScore(members[i]), keeperScore(members[j])
		if si != sj {
			return si > sj
		}
		return members[i].LastEditedTime.After(members[j].LastEditedTime)
	})
	return Group{Keeper: members[0], Donors: members[1:]}
}

// MergeGroup folds every donor's properties into the keeper, writes the
// merged set, and archives the donors. The keeper write is fail-closed
// (retried once with a reduced property set, then surfaced); donor archive
// failures are logged per donor and do not block the rest.
func (r *Resolver) MergeGroup(ctx context.Context, g Group) error {
	merged := make(map[string]notion.Property, len(g.Keeper.Properties))
	for name, p := range g.Keeper.Properties {
		merged[name] = p
	}

	for _, donor := range g.Donors {
		donorNewer := donor.LastEditedTime.After(g.Keeper.LastEditedTime)
		for name, donorProp := range donor.Properties {
			merged[name] = mergeProperty(merged[name], donorProp, donorNewer)
		}
	}
	// Unsupported property kinds decode to a zero Property; drop them so
	// the patch only names properties it can express.
	for name, p := range merged {
		if p.Kind == "" {
			delete(merged, name)
		}
	}

	if err := r.writeWithRetry(ctx, g.Keeper.ID, merged); err != nil {
		return fmt.Errorf("failed to write merged keeper %s: %w", g.Keeper.ID, err)
	}

	for _, donor := range g.Donors {
		if err := r.meta.ArchivePage(ctx, donor.ID); err != nil {
			r.log.Warn("failed to archive donor page", "page_id", donor.ID, "error", err)
		}
	}

	if stale := donorCatalogIDs(g); len(stale) > 0 {
		if err := r.catalog.MoveToTrash(ctx, stale); err != nil {
			r.log.Warn("failed to trash superseded catalog entries",
				"entry_ids", stale, "error", err)
		} else {
			r.index.Invalidate()
		}
	}

	r.log.Info("merged duplicate group",
		"keeper", g.Keeper.ID, "donors", len(g.Donors))
	return nil
}

// donorCatalogIDs collects catalog entries referenced only by donors. The
// keeper's entry, if any, stays.
func donorCatalogIDs(g Group) []string {
	keeperID := g.Keeper.Properties[propEagleID].Text
	var ids []string
	for _, donor := range g.Donors {
		id := donor.Properties[propEagleID].Text
		if id != "" && id != keeperID {
			ids = append(ids, id)
		}
	}
	return ids
}

// MergeAll discovers and merges every duplicate group in the scan window.
// Merging an already-merged group is a no-op: archived donors drop out of
// the next scan, so the group is simply not rediscovered.
func (r *Resolver) MergeAll(ctx context.Context) (int, error) {
	groups, err := r.FindDuplicateGroups(ctx)
	if err != nil {
		return 0, err
	}
	merged := 0
	for _, g := range groups {
		if err := r.MergeGroup(ctx, g); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}
