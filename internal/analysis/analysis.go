// Package analysis extracts audio features by shelling out to the usual
// command-line analyzers: aubio for tempo, keyfinder-cli for musical key,
// ffprobe for duration.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"cratekeeper/internal/logger"
)

// Analyzer runs feature extraction on produced audio files. BPM and key
// failures degrade to zero values; duration failures surface, since a track
// without a duration cannot be matched or reported sensibly.
type Analyzer struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Default()
	}
	return &Analyzer{log: log.WithComponent("analysis")}
}

// BPM estimates the track tempo, rounded to the nearest whole beat. Returns
// 0 when aubio is unavailable or produces nothing usable.
func (a *Analyzer) BPM(ctx context.Context, path string) int {
	cmd := exec.CommandContext(ctx, "aubio", "tempo", path)
	out, err := cmd.Output()
	if err != nil {
		a.log.Warn("bpm analysis failed", "path", path, "error", err)
		return 0
	}
	return parseBPM(string(out))
}

// Key estimates the musical key via keyfinder-cli, which reports Camelot
// notation. Returns "Unknown" when detection fails.
func (a *Analyzer) Key(ctx context.Context, path string) string {
	cmd := exec.CommandContext(ctx, "keyfinder-cli", path)
	out, err := cmd.Output()
	if err != nil {
		a.log.Warn("key analysis failed", "path", path, "error", err)
		return "Unknown"
	}
	key := strings.TrimSpace(string(out))
	if key == "" {
		return "Unknown"
	}
	return key
}

// DurationSec reads the container duration via ffprobe, rounded to whole
// seconds.
func (a *Analyzer) DurationSec(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", path)
	}
	return int(math.Round(seconds)), nil
}

// parseBPM reads aubio tempo output, whose last non-empty line looks like
// "126.291 bpm".
func parseBPM(out string) int {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if bpm, err := strconv.ParseFloat(fields[0], 64); err == nil && bpm > 0 {
			return int(math.Round(bpm))
		}
	}
	return 0
}
