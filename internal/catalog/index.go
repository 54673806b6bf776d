package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/logger"
)

// FetchFunc loads the full entry list from the catalog service.
type FetchFunc func(ctx context.Context) ([]Entry, error)

// Index is a time-bound cache of all catalog entries, pre-indexed by name,
// path and fingerprint. The catalog can hold tens of thousands of items and
// is queried dozens of times per processed track, so lookups must not be
// linear scans against the service.
//
// Refresh builds a complete new snapshot and swaps it in atomically, so
// concurrent readers always observe either the fully-old or fully-new index,
// never a half-rebuilt one.
type Index struct {
	fetch FetchFunc
	now   func() time.Time
	ttl   time.Duration
	log   *logger.Logger

	mu        sync.RWMutex
	snap      *snapshot
	fetchedAt time.Time
}

type snapshot struct {
	entries       []Entry
	byName        map[string][]Entry
	byPath        map[string]Entry
	byFingerprint map[string][]Entry
}

// NewIndex creates an index over fetch. now is injectable for deterministic
// staleness tests; pass nil for time.Now. ttl <= 0 selects the default.
func NewIndex(fetch FetchFunc, now func() time.Time, ttl time.Duration, log *logger.Logger) *Index {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = constants.DefaultCatalogTTL
	}
	if log == nil {
		log = logger.Default()
	}
	return &Index{
		fetch: fetch,
		now:   now,
		ttl:   ttl,
		log:   log.WithComponent("catalog-index"),
	}
}

// Refresh fetches the entry list if the cache is absent, older than the TTL,
// or force is set. On fetch failure the stale snapshot (or an empty one on
// first load) is retained and a warning logged: a false negative here only
// causes a redundant create downstream, never data loss.
func (ix *Index) Refresh(ctx context.Context, force bool) error {
	ix.mu.RLock()
	fresh := ix.snap != nil && !force && ix.now().Before(ix.fetchedAt.Add(ix.ttl))
	ix.mu.RUnlock()
	if fresh {
		return nil
	}

	entries, err := ix.fetch(ctx)
	if err != nil {
		ix.log.Warn("catalog refresh failed, keeping stale index", "error", err)
		ix.mu.Lock()
		if ix.snap == nil {
			ix.snap = buildSnapshot(nil)
			ix.fetchedAt = ix.now()
		}
		ix.mu.Unlock()
		return err
	}

	snap := buildSnapshot(entries)
	ix.mu.Lock()
	ix.snap = snap
	ix.fetchedAt = ix.now()
	ix.mu.Unlock()
	return nil
}

// Invalidate forces the next read to refetch. Called after any write to the
// catalog (a new entry imported) so subsequent reads are consistent.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.fetchedAt = time.Time{}
	ix.mu.Unlock()
}

// FindByPath returns the entry backing path, or nil.
func (ix *Index) FindByPath(ctx context.Context, path string) *Entry {
	snap := ix.current(ctx)
	if e, ok := snap.byPath[path]; ok {
		out := e
		return &out
	}
	return nil
}

// FindByName returns all entries whose display name equals name
// (case-insensitive).
func (ix *Index) FindByName(ctx context.Context, name string) []Entry {
	snap := ix.current(ctx)
	return snap.byName[strings.ToLower(name)]
}

// FindByFingerprint returns all entries carrying the given fingerprint tag
// digest.
func (ix *Index) FindByFingerprint(ctx context.Context, fp string) []Entry {
	snap := ix.current(ctx)
	return snap.byFingerprint[strings.ToLower(fp)]
}

// All returns the full cached entry set, refreshing first if stale.
func (ix *Index) All(ctx context.Context) []Entry {
	return ix.current(ctx).entries
}

// current refreshes if needed (fail-open) and returns the live snapshot.
func (ix *Index) current(ctx context.Context) *snapshot {
	_ = ix.Refresh(ctx, false)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.snap == nil {
		return buildSnapshot(nil)
	}
	return ix.snap
}

func buildSnapshot(entries []Entry) *snapshot {
	snap := &snapshot{
		entries:       entries,
		byName:        make(map[string][]Entry, len(entries)),
		byPath:        make(map[string]Entry, len(entries)),
		byFingerprint: make(map[string][]Entry),
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		snap.byName[name] = append(snap.byName[name], e)
		if e.Path != "" {
			snap.byPath[e.Path] = e
		}
		if e.Info.Fingerprint != "" {
			fp := strings.ToLower(e.Info.Fingerprint)
			snap.byFingerprint[fp] = append(snap.byFingerprint[fp], e)
		}
	}
	return snap
}
