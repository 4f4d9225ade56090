package port

import "context"

type TranscodeResult struct {
	// FramePaths are the output images in lexicographic (= temporal) order.
	FramePaths []string
	// Timestamps holds exactly one presentation timestamp per frame, recovered
	// from the transcoder diagnostics or estimated from the sample rate.
	Timestamps []float64
	// VideoDuration is the probed source duration in seconds, zero if unknown.
	VideoDuration float64
}

// FrameTranscoder samples a video into sequentially numbered still frames.
// Implementations run synchronously; a non-zero tool exit is returned as an
// error with no partial result.
type FrameTranscoder interface {
	ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*TranscodeResult, error)
}
