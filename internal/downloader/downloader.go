// Package downloader retrieves source audio from streaming platforms via
// yt-dlp.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"cratekeeper/internal/domain"
	"cratekeeper/internal/filesystem"
	"cratekeeper/internal/logger"
)

// Downloader fetches source audio and metadata for one URL at a time. Safe
// for concurrent use; yt-dlp runs as a subprocess per call.
type Downloader struct {
	workDir string
	log     *logger.Logger
}

func New(workDir string, log *logger.Logger) *Downloader {
	if log == nil {
		log = logger.Default()
	}
	return &Downloader{
		workDir: workDir,
		log:     log.WithComponent("downloader"),
	}
}

type probeInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Track      string  `json:"track"`
	Artist     string  `json:"artist"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Album      string  `json:"album"`
	Genre      string  `json:"genre"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// Probe fetches metadata for a URL without downloading any audio. The
// returned track carries the best available title/artist/duration and the
// canonical webpage URL, feeding the pre-download duplicate check.
func (d *Downloader) Probe(ctx context.Context, sourceURL string) (*domain.Track, error) {
	result, err := ytdlp.New().
		NoWarnings().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed for %s: %w", sourceURL, err)
	}

	var info probeInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("yt-dlp returned no resource id for %s", sourceURL)
	}

	track := &domain.Track{
		SourceURL:   canonical(info.WebpageURL, sourceURL),
		Title:       pickTitle(info),
		Artist:      pickArtist(info),
		Album:       info.Album,
		Genre:       info.Genre,
		DurationSec: int(info.Duration + 0.5),
	}
	track.Normalize()
	return track, nil
}

// Download fetches the best available audio for a URL into the work
// directory and returns the downloaded file's path.
func (d *Downloader) Download(ctx context.Context, sourceURL string) (string, error) {
	if err := filesystem.EnsureDir(d.workDir); err != nil {
		return "", err
	}

	outputTemplate := filepath.Join(d.workDir, "%(id)s.%(ext)s")
	result, err := ytdlp.New().
		NoWarnings().
		NoPlaylist().
		Format("bestaudio[ext=m4a]/bestaudio").
		Output(outputTemplate).
		Print("after_move:filepath").
		Run(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("yt-dlp download failed for %s: %w", sourceURL, err)
	}

	path := strings.TrimSpace(result.Stdout)
	if path == "" {
		return "", fmt.Errorf("yt-dlp reported no output file for %s", sourceURL)
	}
	d.log.Info("downloaded source audio", "source_url", sourceURL, "path", path)
	return path, nil
}

func pickTitle(info probeInfo) string {
	if strings.TrimSpace(info.Track) != "" {
		return info.Track
	}
	return info.Title
}

// pickArtist falls through the metadata fields platforms actually populate,
// best first.
func pickArtist(info probeInfo) string {
	for _, candidate := range []string{info.Artist, info.Channel, info.Uploader} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "Unknown Artist"
}

func canonical(webpageURL, requested string) string {
	if strings.TrimSpace(webpageURL) != "" {
		return webpageURL
	}
	return requested
}
