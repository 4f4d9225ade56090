package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/scanforge/scan-processing-service/internal/domain/port"
	"go.uber.org/zap"
)

// maxFrames is the ceiling of the 6-digit output numbering scheme.
const maxFrames = 999999

type Transcoder struct {
	fps     int
	maxDim  int
	quality int
	logger  *zap.Logger
}

func NewTranscoder(fps, maxDim, quality int, logger *zap.Logger) *Transcoder {
	return &Transcoder{fps: fps, maxDim: maxDim, quality: quality, logger: logger}
}

// ExtractFrames samples videoPath at the configured rate into %06d.jpg files
// under outputDir. The showinfo filter is included so per-frame presentation
// timestamps can be recovered from the tool diagnostics; any shortfall is
// padded with an even-spacing estimate.
func (t *Transcoder) ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*port.TranscodeResult, error) {
	duration, err := t.probeDuration(ctx, videoPath)
	if err != nil {
		t.logger.Warn("could not probe video duration", zap.Error(err))
	}

	filter := buildFilter(t.fps, t.maxDim)
	framePattern := filepath.Join(outputDir, "%06d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", filter,
		"-q:v", strconv.Itoa(t.quality),
		"-y",
		framePattern,
	)

	// showinfo writes to stderr; keep stdout too for error reporting.
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, tail(string(output), 2048))
	}

	frames, err := filepath.Glob(filepath.Join(outputDir, "*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from video")
	}
	sort.Strings(frames)
	if len(frames) >= maxFrames {
		t.logger.Warn("frame count reached the 6-digit numbering cap",
			zap.Int("count", len(frames)),
		)
	}

	timestamps := ParseFrameTimestamps(string(output))
	if len(timestamps) < len(frames) {
		t.logger.Warn("diagnostics yielded fewer timestamps than frames, padding with estimates",
			zap.Int("recovered", len(timestamps)),
			zap.Int("frames", len(frames)),
		)
	}
	timestamps = PadTimestamps(timestamps, len(frames), t.fps)

	t.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", duration),
	)

	return &port.TranscodeResult{
		FramePaths:    frames,
		Timestamps:    timestamps,
		VideoDuration: duration,
	}, nil
}

// buildFilter samples at fps and rescales so that neither dimension exceeds
// maxDim, preserving aspect ratio. Both axes are bounded so portrait video is
// capped on its height, not just its width.
func buildFilter(fps, maxDim int) string {
	return fmt.Sprintf(
		"fps=%d,scale=w='min(iw,%d)':h='min(ih,%d)':force_original_aspect_ratio=decrease:force_divisible_by=2:flags=lanczos,showinfo",
		fps, maxDim, maxDim,
	)
}

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseFrameTimestamps extracts the per-frame presentation timestamps from
// showinfo diagnostic text, in emission order.
func ParseFrameTimestamps(diagnostics string) []float64 {
	var out []float64
	for _, line := range strings.Split(diagnostics, "\n") {
		if !strings.Contains(line, "Parsed_showinfo") {
			continue
		}
		m := ptsTimeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// PadTimestamps extends ts to exactly n entries, estimating any missing tail
// as ordinal/fps with the 1-based frame ordinal.
func PadTimestamps(ts []float64, n, fps int) []float64 {
	if len(ts) > n {
		return ts[:n]
	}
	for i := len(ts); i < n; i++ {
		ts = append(ts, float64(i+1)/float64(fps))
	}
	return ts
}

func (t *Transcoder) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
