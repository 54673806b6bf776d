// Package cli wires configuration, storage, the service clients and the
// pipeline into the cratekeeper commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratekeeper/internal/analysis"
	"cratekeeper/internal/catalog"
	"cratekeeper/internal/config"
	"cratekeeper/internal/constants"
	"cratekeeper/internal/dedupe"
	"cratekeeper/internal/downloader"
	"cratekeeper/internal/eagle"
	"cratekeeper/internal/fingerprint"
	"cratekeeper/internal/httpclient"
	"cratekeeper/internal/logger"
	"cratekeeper/internal/loudness"
	"cratekeeper/internal/match"
	"cratekeeper/internal/notion"
	"cratekeeper/internal/pipeline"
	"cratekeeper/internal/report"
	"cratekeeper/internal/store"
	"cratekeeper/internal/transcode"
)

var cmdRoot = &cobra.Command{
	Use:   "cratekeeper",
	Short: "Download, process and catalog tracks into a personal library",
}

func init() {
	cmdRoot.AddCommand(cmdProcess(), cmdDedupe(), cmdReport(), cmdServe())
}

func Execute() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *store.DB
	eagle    *eagle.Client
	notion   *notion.Client
	index    *catalog.Index
	resolver *dedupe.Resolver
	pipe     *pipeline.Pipeline
	reporter *report.Reporter
}

func newApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: log,
		db:  db,
		eagle: eagle.NewClient(cfg.EagleURL, cfg.EagleToken,
			httpclient.NewClient(nil, constants.EagleMinInterval)),
		notion: notion.NewClient(cfg.NotionBaseURL, cfg.NotionToken,
			httpclient.NewClient(nil, constants.NotionMinInterval)),
	}

	a.index = catalog.NewIndex(a.catalogFetch, nil, constants.DefaultCatalogTTL, log)
	scorer := match.NewScorer(a.index, match.DefaultParams())
	a.resolver = dedupe.NewResolver(scorer, a.index, a.eagle, a.notion,
		cfg.NotionTracksDB, cfg.EagleFolderID, log)

	a.pipe = pipeline.New(
		db,
		downloader.New(os.TempDir(), log),
		transcode.New(log),
		loudness.New(cfg.TargetLUFS, log),
		analysis.New(log),
		a.resolver,
		fingerprint.ComputeFile,
		pipeline.Options{
			LibraryDir:  cfg.LibraryDir,
			Formats:     cfg.Formats,
			Concurrency: cfg.Concurrency,
		},
		log,
	)

	a.reporter = report.New(db, a.resolver, a.notion, cfg.NotionIssuesDB, log)
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close journal", "error", err)
	}
}

const eagleListCacheKey = "eagle:list"

// catalogFetch loads the catalog listing for the match index. Successful
// listings are snapshotted into the journal's cache table so a catalog
// outage degrades to slightly stale entries instead of an empty index.
func (a *app) catalogFetch(ctx context.Context) ([]catalog.Entry, error) {
	items, err := a.eagle.ListItems(ctx, constants.DedupeWindowSize*10)
	if err != nil {
		cached, cacheErr := a.db.GetCache(eagleListCacheKey)
		if cacheErr != nil || cached == nil {
			return nil, err
		}
		var snapshot []eagle.Item
		if jsonErr := json.Unmarshal(cached, &snapshot); jsonErr != nil {
			return nil, err
		}
		a.log.Warn("catalog unreachable, using cached listing", "error", err)
		items = snapshot
	} else if data, jsonErr := json.Marshal(items); jsonErr == nil {
		if cacheErr := a.db.SetCache(eagleListCacheKey, data, constants.DefaultCacheTTL); cacheErr != nil {
			a.log.Warn("failed to snapshot catalog listing", "error", cacheErr)
		}
	}

	entries := make([]catalog.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, catalog.FromItem(item))
	}
	return entries, nil
}
