// Package loudness measures and normalizes program loudness with ffmpeg's
// two-pass loudnorm filter.
package loudness

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/filesystem"
	"cratekeeper/internal/logger"
)

// Measurement holds the first-pass loudnorm statistics. The string fields
// mirror ffmpeg's JSON output and feed the second pass verbatim.
type Measurement struct {
	InputI      string `json:"input_i"`
	InputTP     string `json:"input_tp"`
	InputLRA    string `json:"input_lra"`
	InputThresh string `json:"input_thresh"`
	Offset      string `json:"target_offset"`
}

// IntegratedLUFS returns the measured integrated loudness as a number.
func (m Measurement) IntegratedLUFS() float64 {
	v, _ := strconv.ParseFloat(m.InputI, 64)
	return v
}

// Processor runs loudness measurement and normalization.
type Processor struct {
	targetLUFS float64
	log        *logger.Logger
}

func New(targetLUFS float64, log *logger.Logger) *Processor {
	if targetLUFS == 0 {
		targetLUFS = constants.DefaultTargetLUFS
	}
	if log == nil {
		log = logger.Default()
	}
	return &Processor{
		targetLUFS: targetLUFS,
		log:        log.WithComponent("loudness"),
	}
}

// Measure runs the loudnorm analysis pass and parses the statistics ffmpeg
// prints to stderr.
func (p *Processor) Measure(ctx context.Context, path string) (*Measurement, error) {
	filter := fmt.Sprintf("loudnorm=I=%g:TP=%g:LRA=11:print_format=json",
		p.targetLUFS, constants.DefaultTruePeak)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-i", path,
		"-af", filter,
		"-f", "null", "-",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg loudness analysis failed: %v (%s)", err, out)
	}

	m, err := parseMeasurement(string(out))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize writes a loudness-normalized copy of inputPath to outputPath
// using the given first-pass measurement, preserving the input codec family
// via a fresh encode at the source sample rate.
func (p *Processor) Normalize(ctx context.Context, inputPath, outputPath string, m *Measurement) error {
	filter := fmt.Sprintf(
		"loudnorm=I=%g:TP=%g:LRA=11:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		p.targetLUFS, constants.DefaultTruePeak,
		m.InputI, m.InputTP, m.InputLRA, m.InputThresh, m.Offset,
	)

	tmpPath := outputPath + ".tmp.wav"
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-v", "error", "-i", inputPath,
		"-af", filter,
		"-c:a", "pcm_s16le",
		"-f", "wav", tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg normalization failed: %v (%s)", err, out)
	}

	if err := filesystem.MoveFile(tmpPath, outputPath); err != nil {
		return err
	}
	p.log.Debug("normalized loudness",
		"input", inputPath, "measured_lufs", m.InputI, "target_lufs", p.targetLUFS)
	return nil
}

// parseMeasurement extracts the JSON block loudnorm appends to the end of
// ffmpeg's stderr output.
func parseMeasurement(out string) (*Measurement, error) {
	start := strings.LastIndex(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no loudnorm statistics in ffmpeg output")
	}

	var m Measurement
	if err := json.Unmarshal([]byte(out[start:end+1]), &m); err != nil {
		return nil, fmt.Errorf("failed to parse loudnorm statistics: %w", err)
	}
	if m.InputI == "" {
		return nil, fmt.Errorf("loudnorm statistics missing input_i")
	}
	return &m, nil
}
