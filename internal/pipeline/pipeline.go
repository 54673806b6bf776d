// Package pipeline runs tracks through the full processing chain: probe,
// duplicate check, download, normalize, transcode, analyze, catalog import
// and metadata sync. A batch is fanned out over a bounded worker pool and
// keeps going when individual tracks fail.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cratekeeper/internal/domain"
	"cratekeeper/internal/filesystem"
	"cratekeeper/internal/logger"
	"cratekeeper/internal/loudness"
	"cratekeeper/internal/match"
	"cratekeeper/internal/tagging"
)

// Journal persists per-track processing state between runs.
type Journal interface {
	CreateTrack(track *domain.Track) error
	GetTrackBySourceURL(sourceURL string) (*domain.Track, error)
	UpdateTrack(track *domain.Track) error
}

// Fetcher probes and downloads source audio.
type Fetcher interface {
	Probe(ctx context.Context, sourceURL string) (*domain.Track, error)
	Download(ctx context.Context, sourceURL string) (string, error)
}

// Converter produces an output format from a source file.
type Converter interface {
	Transcode(ctx context.Context, inputPath, outputPath, format string) error
}

// Normalizer measures and corrects program loudness.
type Normalizer interface {
	Measure(ctx context.Context, path string) (*loudness.Measurement, error)
	Normalize(ctx context.Context, inputPath, outputPath string, m *loudness.Measurement) error
}

// FeatureAnalyzer extracts musical features from an audio file.
type FeatureAnalyzer interface {
	BPM(ctx context.Context, path string) int
	Key(ctx context.Context, path string) string
	DurationSec(ctx context.Context, path string) (int, error)
}

// Deduper resolves a track against the catalog and the metadata store.
type Deduper interface {
	FindExisting(ctx context.Context, track *domain.Track) *match.Candidate
	KnownCompletedPage(ctx context.Context, track *domain.Track) string
	EnsureCatalogEntry(ctx context.Context, track *domain.Track, importPath string) (string, bool, error)
	SyncMetadata(ctx context.Context, track *domain.Track) (string, error)
}

// Fingerprinter hashes a file's audio bytes into a stable digest.
type Fingerprinter func(path string) (string, error)

// TagWriter stamps track metadata into a produced file.
type TagWriter func(ctx context.Context, path string, track *domain.Track, coverArt []byte) error

// Options configures a Pipeline.
type Options struct {
	LibraryDir  string
	WorkDir     string
	Formats     []string
	Concurrency int
}

// Pipeline coordinates the per-track stages.
type Pipeline struct {
	journal  Journal
	fetcher  Fetcher
	convert  Converter
	norm     Normalizer
	analyze  FeatureAnalyzer
	resolver Deduper
	print    Fingerprinter
	tag      TagWriter
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

func New(
	journal Journal,
	fetcher Fetcher,
	convert Converter,
	norm Normalizer,
	analyze FeatureAnalyzer,
	resolver Deduper,
	print Fingerprinter,
	opts Options,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.Default()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Pipeline{
		journal:  journal,
		fetcher:  fetcher,
		convert:  convert,
		norm:     norm,
		analyze:  analyze,
		resolver: resolver,
		print:    print,
		tag:      tagging.TagFile,
		opts:     opts,
		log:      log.WithComponent("pipeline"),
		now:      time.Now,
	}
}

// Result reports the outcome of one track.
type Result struct {
	SourceURL string
	Track     *domain.Track
	Err       error
}

// Process runs every URL through the pipeline with at most
// Options.Concurrency tracks in flight. One failed track never aborts the
// batch; its error lands in the corresponding Result.
func (p *Pipeline) Process(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	sem := make(chan struct{}, p.opts.Concurrency)
	var wg sync.WaitGroup

	for i, u := range urls {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, sourceURL string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("panic while processing track", "url", sourceURL, "panic", r)
					results[i] = Result{SourceURL: sourceURL, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			track, err := p.ProcessOne(ctx, sourceURL)
			results[i] = Result{SourceURL: sourceURL, Track: track, Err: err}
		}(i, u)
	}

	wg.Wait()
	return results
}

// ProcessOne runs a single URL through every stage. Tracks already marked
// completed in the journal are returned untouched.
func (p *Pipeline) ProcessOne(ctx context.Context, sourceURL string) (*domain.Track, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	log := p.log.WithTrack(sourceURL, "")

	existing, err := p.journal.GetTrackBySourceURL(sourceURL)
	if err != nil {
		log.Warn("journal lookup failed, continuing", "error", err)
	}
	if existing != nil && existing.Status == domain.TrackStatusCompleted {
		log.Info("track already processed, skipping")
		return existing, nil
	}

	track, err := p.fetcher.Probe(ctx, sourceURL)
	if err != nil {
		return p.fail(existing, fmt.Errorf("probe failed: %w", err))
	}
	if existing == nil && track.SourceURL != sourceURL {
		// The probe canonicalizes the URL, so a variant of an already
		// journaled track resolves to the same row here.
		existing, err = p.journal.GetTrackBySourceURL(track.SourceURL)
		if err != nil {
			log.Warn("journal lookup failed, continuing", "error", err)
		}
		if existing != nil && existing.Status == domain.TrackStatusCompleted {
			log.Info("track already processed, skipping")
			return existing, nil
		}
	}
	if existing != nil {
		// Reprocessing a previously failed or interrupted track keeps its
		// journal identity.
		track.ID = existing.ID
		track.CreatedAt = existing.CreatedAt
		track.NotionID = existing.NotionID
	}
	track.Status = domain.TrackStatusQueued
	log = p.log.WithTrack(track.SourceURL, track.DisplayName())

	if existing == nil {
		if err := p.journal.CreateTrack(track); err != nil {
			log.Warn("failed to journal track, continuing", "error", err)
		}
	}

	// Known-track checks before spending bandwidth. Both are fail-open: an
	// empty or stale index returns no candidate, a metadata-store outage
	// reads as a miss.
	if best := p.resolver.FindExisting(ctx, track); best != nil {
		log.Info("track already in catalog, skipping download",
			"entry_id", best.Entry.ID, "score", best.Total)
		track.EagleID = best.Entry.ID
		track.Status = domain.TrackStatusDuplicate
		if err := p.syncMetadata(ctx, track); err != nil {
			return p.fail(track, err)
		}
		p.journalUpdate(track, log)
		return track, nil
	}
	if pageID := p.resolver.KnownCompletedPage(ctx, track); pageID != "" {
		log.Info("track already recorded in metadata store, skipping download",
			"page_id", pageID)
		track.NotionID = pageID
		track.Status = domain.TrackStatusDuplicate
		p.journalUpdate(track, log)
		return track, nil
	}

	track.Status = domain.TrackStatusDownloading
	p.journalUpdate(track, log)

	srcPath, err := p.fetcher.Download(ctx, sourceURL)
	if err != nil {
		return p.fail(track, fmt.Errorf("download failed: %w", err))
	}
	defer func() {
		_ = os.Remove(srcPath)
	}()

	track.Status = domain.TrackStatusProcessing
	p.journalUpdate(track, log)

	if err := p.analyzeTrack(ctx, track, srcPath); err != nil {
		return p.fail(track, err)
	}

	normPath, err := p.normalizeLoudness(ctx, track, srcPath, log)
	if err != nil {
		return p.fail(track, err)
	}
	defer func() {
		_ = os.Remove(normPath)
	}()

	if err := p.produceOutputs(ctx, track, normPath, log); err != nil {
		return p.fail(track, err)
	}

	eagleID, existed, err := p.resolver.EnsureCatalogEntry(ctx, track, p.importPath(track))
	if err != nil {
		return p.fail(track, err)
	}
	track.EagleID = eagleID
	if existed {
		track.Status = domain.TrackStatusDuplicate
	} else {
		track.Status = domain.TrackStatusCompleted
		done := p.now()
		track.CompletedAt = &done
	}

	// The final metadata-store write is fail-closed. A sync that still
	// fails after the resolver's retry keeps the track out of the
	// completed state so the next run redoes the write instead of
	// silently dropping it.
	if err := p.syncMetadata(ctx, track); err != nil {
		track.CompletedAt = nil
		return p.fail(track, err)
	}
	p.journalUpdate(track, log)
	log.Info("track processed", "status", track.Status, "eagle_id", track.EagleID)
	return track, nil
}

// analyzeTrack fills duration, BPM, key and fingerprint from the source
// file. BPM and key extraction degrade to zero values on tool failure.
func (p *Pipeline) analyzeTrack(ctx context.Context, track *domain.Track, srcPath string) error {
	if track.DurationSec == 0 {
		dur, err := p.analyze.DurationSec(ctx, srcPath)
		if err != nil {
			return fmt.Errorf("duration probe failed: %w", err)
		}
		track.DurationSec = dur
	}
	track.BPM = p.analyze.BPM(ctx, srcPath)
	track.Key = p.analyze.Key(ctx, srcPath)

	fp, err := p.print(srcPath)
	if err != nil {
		return fmt.Errorf("fingerprint failed: %w", err)
	}
	track.Fingerprint = fp
	return nil
}

// normalizeLoudness runs the two-pass correction into a WAV intermediate
// that the transcodes read from, so every output format gets the same gain.
func (p *Pipeline) normalizeLoudness(ctx context.Context, track *domain.Track, srcPath string, log *logger.Logger) (string, error) {
	m, err := p.norm.Measure(ctx, srcPath)
	if err != nil {
		return "", fmt.Errorf("loudness measurement failed: %w", err)
	}
	track.LUFS = m.IntegratedLUFS()
	log.Debug("measured loudness", "input_i", m.InputI)

	normPath := filepath.Join(p.opts.WorkDir, track.ID+".norm.wav")
	if err := p.norm.Normalize(ctx, srcPath, normPath, m); err != nil {
		return "", fmt.Errorf("loudness normalization failed: %w", err)
	}
	return normPath, nil
}

// produceOutputs transcodes the normalized intermediate into every
// configured format, tags each file and records its path on the track.
func (p *Pipeline) produceOutputs(ctx context.Context, track *domain.Track, normPath string, log *logger.Logger) error {
	if track.Paths == nil {
		track.Paths = domain.StringMap{}
	}
	base := filesystem.Sanitize(track.DisplayName())

	for _, format := range p.opts.Formats {
		outPath := filepath.Join(p.opts.LibraryDir, base+"."+format)
		if err := p.convert.Transcode(ctx, normPath, outPath, format); err != nil {
			return fmt.Errorf("transcode to %s failed: %w", format, err)
		}
		if err := p.tag(ctx, outPath, track, nil); err != nil {
			log.Warn("failed to tag output", "format", format, "error", err)
		}
		track.Paths[format] = outPath
	}
	return nil
}

// importPath picks the file handed to the catalog, preferring lossless
// outputs over compressed ones.
func (p *Pipeline) importPath(track *domain.Track) string {
	for _, format := range []string{"wav", "aiff", "flac", "m4a", "mp3"} {
		if path, ok := track.Paths[format]; ok {
			return path
		}
	}
	for _, path := range track.Paths {
		return path
	}
	return ""
}

// syncMetadata pushes the track to the metadata store and records the page
// id on success.
func (p *Pipeline) syncMetadata(ctx context.Context, track *domain.Track) error {
	pageID, err := p.resolver.SyncMetadata(ctx, track)
	if err != nil {
		return fmt.Errorf("metadata sync failed: %w", err)
	}
	track.NotionID = pageID
	return nil
}

func (p *Pipeline) journalUpdate(track *domain.Track, log *logger.Logger) {
	if err := p.journal.UpdateTrack(track); err != nil {
		log.Warn("failed to update journal", "error", err)
	}
}

// fail stamps the error on the track's journal row and surfaces it.
func (p *Pipeline) fail(track *domain.Track, err error) (*domain.Track, error) {
	if track != nil {
		track.Status = domain.TrackStatusFailed
		track.Error = err.Error()
		if jerr := p.journal.UpdateTrack(track); jerr != nil {
			p.log.Warn("failed to journal track failure", "error", jerr)
		}
	}
	return track, err
}
