package tagging

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/domain"
	"cratekeeper/internal/filesystem"
)

// tagWithFFmpeg rewrites the container with -metadata flags and a stream
// copy. ffmpeg cannot edit in place so the output goes to a temp file that
// replaces the original.
func tagWithFFmpeg(ctx context.Context, path string, track *domain.Track) error {
	tempOut := path + ".tagged" + filepath.Ext(path)

	args := []string{"-y", "-i", path}
	for key, value := range metadataPairs(track) {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == constants.ExtAIFF || ext == constants.ExtWAV {
		args = append(args, "-write_id3v2", "1")
	}
	args = append(args, "-c", "copy", "-f", containerMuxer(ext), tempOut)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tempOut)
		return fmt.Errorf("ffmpeg tagging failed: %s (%w)", string(out), err)
	}

	if err := filesystem.MoveFile(tempOut, path); err != nil {
		return fmt.Errorf("failed to replace tagged file: %w", err)
	}
	return nil
}

// metadataPairs maps track fields to ffmpeg metadata keys, skipping empty
// values so existing tags in the source are not blanked out.
func metadataPairs(track *domain.Track) map[string]string {
	pairs := map[string]string{
		"title":  track.Title,
		"artist": track.Artist,
		"album":  track.Album,
		"genre":  track.Genre,
	}
	if track.BPM > 0 {
		pairs["TBPM"] = strconv.Itoa(track.BPM)
	}
	if track.Key != "" && track.Key != "Unknown" {
		pairs["TKEY"] = track.Key
	}
	if track.SourceURL != "" {
		pairs["comment"] = track.SourceURL
	}
	for key, value := range pairs {
		if value == "" {
			delete(pairs, key)
		}
	}
	return pairs
}

func containerMuxer(ext string) string {
	switch ext {
	case constants.ExtM4A:
		return "ipod"
	case constants.ExtAIFF:
		return "aiff"
	default:
		return "wav"
	}
}
