// Package transcode produces the library's output formats from a downloaded
// source file by shelling out to ffmpeg.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"cratekeeper/internal/filesystem"
	"cratekeeper/internal/logger"
)

// codecArgs maps each output format to its ffmpeg encoder arguments.
var codecArgs = map[string][]string{
	"aiff": {"-c:a", "pcm_s16be"},
	"wav":  {"-c:a", "pcm_s16le"},
	"m4a":  {"-c:a", "aac", "-b:a", "256k"},
	"mp3":  {"-c:a", "libmp3lame", "-q:a", "0"},
	"flac": {"-c:a", "flac"},
}

// Transcoder converts audio files between formats.
type Transcoder struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Transcoder {
	if log == nil {
		log = logger.Default()
	}
	return &Transcoder{log: log.WithComponent("transcode")}
}

// SupportedFormat reports whether format has an encoder mapping.
func SupportedFormat(format string) bool {
	_, ok := codecArgs[strings.ToLower(format)]
	return ok
}

// Transcode converts inputPath into the given format at outputPath. The
// write goes through a temp file in the destination directory so a killed
// ffmpeg never leaves a truncated output behind.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath, format string) error {
	format = strings.ToLower(format)
	args, ok := codecArgs[format]
	if !ok {
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err := filesystem.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return err
	}

	tmpPath := outputPath + ".tmp." + format
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	cmdArgs := []string{"-y", "-v", "error", "-i", inputPath, "-vn"}
	cmdArgs = append(cmdArgs, args...)
	cmdArgs = append(cmdArgs, "-f", ffmpegMuxer(format), tmpPath)

	if out, err := runFFmpeg(ctx, cmdArgs); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg transcode to %s failed: %v (%s)", format, err, out)
	}

	if err := filesystem.MoveFile(tmpPath, outputPath); err != nil {
		return err
	}
	t.log.Debug("transcoded", "input", inputPath, "output", outputPath, "format", format)
	return nil
}

// ffmpegMuxer names the container muxer; mostly the format itself, but m4a
// rides in an mp4/ipod container.
func ffmpegMuxer(format string) string {
	if format == "m4a" {
		return "ipod"
	}
	return format
}

func runFFmpeg(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
