package dedupe

import (
	"context"
	"testing"
	"time"

	"cratekeeper/internal/notion"
)

func TestUnionFind_TransitiveClosure(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(1, 2)
	uf.union(3, 4)

	if uf.find(0) != uf.find(2) {
		t.Error("0 and 2 must share a root via 1")
	}
	if uf.find(0) == uf.find(3) {
		t.Error("0 and 3 must stay separate")
	}

	groups := uf.groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups[0]) != 3 || len(groups[1]) != 2 {
		t.Errorf("group sizes = %d/%d, want 3/2", len(groups[0]), len(groups[1]))
	}
}

func trackPage(id string, props map[string]notion.Property, editedAt time.Time) notion.Page {
	return notion.Page{ID: id, LastEditedTime: editedAt, Properties: props}
}

func TestKeeperScore_Monotonic(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	rich := trackPage("rich", map[string]notion.Property{
		propEagleID:  notion.RichText("E1"),
		propWAVPath:  notion.RichText("/lib/x.wav"),
		propAIFFPath: notion.RichText("/lib/x.aiff"),
	}, old)
	bare := trackPage("bare", map[string]notion.Property{
		propName: notion.Title("x"),
	}, recent)

	if keeperScore(rich) <= keeperScore(bare) {
		t.Fatalf("rich=%d bare=%d", keeperScore(rich), keeperScore(bare))
	}

	// Recency never beats substance.
	g := electKeeper([]notion.Page{bare, rich})
	if g.Keeper.ID != "rich" {
		t.Errorf("keeper = %s, want rich", g.Keeper.ID)
	}
}

func TestElectKeeper_TiesBreakOnRecency(t *testing.T) {
	older := trackPage("older", nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := trackPage("newer", nil, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	g := electKeeper([]notion.Page{older, newer})
	if g.Keeper.ID != "newer" {
		t.Errorf("keeper = %s, want newer", g.Keeper.ID)
	}
}

func TestMergeProperty_Rules(t *testing.T) {
	t.Run("multi select unions", func(t *testing.T) {
		got := mergeProperty(notion.MultiSelect("house", "electro"), notion.MultiSelect("electro", "techno"), false)
		if len(got.Values) != 3 || got.Values[2] != "techno" {
			t.Errorf("values = %v", got.Values)
		}
	})
	t.Run("longer text wins", func(t *testing.T) {
		got := mergeProperty(notion.RichText("short"), notion.RichText("much longer note"), false)
		if got.Text != "much longer note" {
			t.Errorf("text = %q", got.Text)
		}
	})
	t.Run("empty side loses", func(t *testing.T) {
		got := mergeProperty(notion.URL(""), notion.URL("https://x"), false)
		if got.Text != "https://x" {
			t.Errorf("text = %q", got.Text)
		}
		got = mergeProperty(notion.Number(128), notion.Property{Kind: notion.KindNumber}, true)
		if got.Number != 128 {
			t.Errorf("number = %v", got.Number)
		}
	})
	t.Run("checkbox ors", func(t *testing.T) {
		got := mergeProperty(notion.Checkbox(false), notion.Checkbox(true), false)
		if !got.Checkbox {
			t.Error("expected true")
		}
	})
	t.Run("scalar conflict decided by recency", func(t *testing.T) {
		got := mergeProperty(notion.Number(120), notion.Number(128), true)
		if got.Number != 128 {
			t.Errorf("donor newer: number = %v", got.Number)
		}
		got = mergeProperty(notion.Number(120), notion.Number(128), false)
		if got.Number != 120 {
			t.Errorf("keeper newer: number = %v", got.Number)
		}
	})
	t.Run("missing keeper kind adopts donor", func(t *testing.T) {
		got := mergeProperty(notion.Property{}, notion.RichText("f1"), false)
		if got.Kind != notion.KindRichText || got.Text != "f1" {
			t.Errorf("got %+v", got)
		}
	})
}

func TestFindDuplicateGroups_URLVariantsGroup(t *testing.T) {
	now := time.Now()
	meta := &fakeMeta{pages: []notion.Page{
		trackPage("a", map[string]notion.Property{
			propName:      notion.Title("One More Time"),
			propSourceURL: notion.URL("https://soundcloud.com/x/y"),
		}, now),
		trackPage("b", map[string]notion.Property{
			propName:      notion.Title("one more time (radio edit)"),
			propSourceURL: notion.URL("https://soundcloud.com/x/y/?in=someone/sets/mix"),
		}, now.Add(-time.Hour)),
		trackPage("c", map[string]notion.Property{
			propName:      notion.Title("Unrelated"),
			propSourceURL: notion.URL("https://soundcloud.com/other/track"),
		}, now),
	}}
	r, _ := resolverWithCatalog(nil, &fakeCatalog{}, meta)

	groups, err := r.FindDuplicateGroups(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if got := 1 + len(groups[0].Donors); got != 2 {
		t.Errorf("group size = %d, want 2", got)
	}
}

func TestFindDuplicateGroups_TitleEquality(t *testing.T) {
	now := time.Now()
	meta := &fakeMeta{pages: []notion.Page{
		trackPage("a", map[string]notion.Property{
			propName: notion.Title("Daft Punk - One More Time"),
		}, now),
		trackPage("b", map[string]notion.Property{
			propName: notion.Title("daft punk   one more time!!"),
		}, now),
	}}
	r, _ := resolverWithCatalog(nil, &fakeCatalog{}, meta)

	groups, err := r.FindDuplicateGroups(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
}

func TestMergeAll_Idempotent(t *testing.T) {
	now := time.Now()
	meta := &fakeMeta{pages: []notion.Page{
		trackPage("keeper", map[string]notion.Property{
			propName:      notion.Title("Strobe"),
			propSourceURL: notion.URL("https://soundcloud.com/x/y"),
			propEagleID:   notion.RichText("E1"),
			propWAVPath:   notion.RichText("/lib/strobe.wav"),
		}, now),
		trackPage("donor", map[string]notion.Property{
			propName:      notion.Title("Strobe"),
			propSourceURL: notion.URL("https://soundcloud.com/x/y/"),
			propGenre:     notion.MultiSelect("progressive house"),
		}, now.Add(-time.Hour)),
	}}
	r, _ := resolverWithCatalog(nil, &fakeCatalog{}, meta)

	merged, err := r.MergeAll(context.Background())
	if err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if merged != 1 {
		t.Fatalf("merged = %d, want 1", merged)
	}
	if len(meta.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(meta.updates))
	}
	if got := meta.updates[0][propGenre]; len(got.Values) != 1 || got.Values[0] != "progressive house" {
		t.Errorf("genre not merged into keeper: %+v", got)
	}
	if len(meta.archived) != 1 || meta.archived[0] != "donor" {
		t.Errorf("archived = %v", meta.archived)
	}

	// Second run sees the donor archived and finds nothing to merge.
	merged, err = r.MergeAll(context.Background())
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if merged != 0 {
		t.Errorf("second run merged = %d, want 0", merged)
	}
	if len(meta.updates) != 1 || len(meta.archived) != 1 {
		t.Errorf("second run produced writes: updates=%d archived=%d",
			len(meta.updates), len(meta.archived))
	}
}

func TestMergeGroup_TrashesDonorCatalogEntries(t *testing.T) {
	now := time.Now()
	meta := &fakeMeta{pages: []notion.Page{
		trackPage("keeper", map[string]notion.Property{
			propName:    notion.Title("Strobe"),
			propEagleID: notion.RichText("E1"),
			propWAVPath: notion.RichText("/lib/strobe.wav"),
		}, now),
		trackPage("donor-own-entry", map[string]notion.Property{
			propName:    notion.Title("Strobe"),
			propEagleID: notion.RichText("E2"),
		}, now.Add(-time.Hour)),
		trackPage("donor-same-entry", map[string]notion.Property{
			propName:    notion.Title("Strobe"),
			propEagleID: notion.RichText("E1"),
		}, now.Add(-2*time.Hour)),
	}}
	cat := &fakeCatalog{}
	r, _ := resolverWithCatalog(nil, cat, meta)

	groups, err := r.FindDuplicateGroups(context.Background())
	if err != nil || len(groups) != 1 {
		t.Fatalf("groups=%d err=%v", len(groups), err)
	}
	if err := r.MergeGroup(context.Background(), groups[0]); err != nil {
		t.Fatalf("MergeGroup: %v", err)
	}
	if len(cat.trashed) != 1 || cat.trashed[0] != "E2" {
		t.Errorf("trashed = %v, want [E2]", cat.trashed)
	}
}

func TestMergeGroup_DonorArchiveFailureDoesNotBlock(t *testing.T) {
	now := time.Now()
	meta := &fakeMeta{
		archiveErrOn: map[string]error{"d1": context.DeadlineExceeded},
		pages: []notion.Page{
			trackPage("keeper", map[string]notion.Property{
				propName:    notion.Title("Strobe"),
				propEagleID: notion.RichText("E1"),
			}, now),
			trackPage("d1", map[string]notion.Property{propName: notion.Title("Strobe")}, now),
			trackPage("d2", map[string]notion.Property{propName: notion.Title("Strobe")}, now),
		},
	}
	r, _ := resolverWithCatalog(nil, &fakeCatalog{}, meta)

	groups, err := r.FindDuplicateGroups(context.Background())
	if err != nil || len(groups) != 1 {
		t.Fatalf("groups=%d err=%v", len(groups), err)
	}
	if err := r.MergeGroup(context.Background(), groups[0]); err != nil {
		t.Fatalf("merge must not fail on a donor archive error: %v", err)
	}
	if len(meta.archived) != 1 || meta.archived[0] != "d2" {
		t.Errorf("archived = %v, want [d2]", meta.archived)
	}
}
