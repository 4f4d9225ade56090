package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scanforge/scan-processing-service/internal/domain/entity"
	"github.com/scanforge/scan-processing-service/internal/domain/port"
	"github.com/scanforge/scan-processing-service/internal/infra/metrics"
	"github.com/scanforge/scan-processing-service/internal/pose"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const manifestName = "index.jsonl"

// frameExtraction turns a walkthrough video into numbered still frames plus a
// pose-enriched manifest under the sibling frames/ prefix.
type frameExtraction struct {
	storage           port.ObjectStorage
	transcoder        port.FrameTranscoder
	logger            *zap.Logger
	fps               int
	uploadConcurrency int
}

func (p *frameExtraction) Run(ctx context.Context, key entity.ScanKey, workDir string, log *zap.Logger) (*pipelineResult, error) {
	tracer := otel.Tracer("usecase")
	stage := stageTimer(entity.PipelineFrames)

	// Download video
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mov")
	err := p.storage.Download(ctx2, key.Key, videoPath)
	spanDl.End()
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	stage("download")

	// Transcode into numbered frames; a tool failure aborts with no uploads.
	ctx3, spanEx := tracer.Start(ctx, "extract_frames")
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		spanEx.End()
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	result, err := p.transcoder.ExtractFrames(ctx3, videoPath, framesDir)
	spanEx.End()
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}
	stage("extract")
	metrics.FramesExtractedTotal.Add(float64(len(result.FramePaths)))

	// Pose sidecar is optional; absence just means an unenriched manifest.
	ctx4, spanPose := tracer.Start(ctx, "build_pose_index")
	idx, err := p.loadPoseIndex(ctx4, key, workDir, log)
	spanPose.End()
	if err != nil {
		return nil, err
	}

	entries := alignFrames(result.FramePaths, result.Timestamps, idx)
	for _, e := range entries {
		switch {
		case e.ARKitPose == nil:
			metrics.PosesMatchedTotal.WithLabelValues("none").Inc()
		default:
			metrics.PosesMatchedTotal.WithLabelValues(e.ARKitPose.MatchType).Inc()
		}
	}

	manifestPath := filepath.Join(workDir, manifestName)
	if err := writeManifest(manifestPath, entries); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	stage("align")

	// Upload frames and manifest with bounded fan-out.
	ctx5, spanUp := tracer.Start(ctx, "upload_frames")
	err = p.uploadOutputs(ctx5, key, result.FramePaths, manifestPath)
	spanUp.End()
	if err != nil {
		return nil, fmt.Errorf("upload outputs: %w", err)
	}
	stage("upload")

	log.Info("frame pipeline finished",
		zap.Int("frames", len(result.FramePaths)),
		zap.Int("pose_entries", idx.Len()),
	)

	return &pipelineResult{
		OutputKey:     key.FramesPrefix(),
		FrameCount:    len(result.FramePaths),
		VideoDuration: result.VideoDuration,
	}, nil
}

func (p *frameExtraction) loadPoseIndex(ctx context.Context, key entity.ScanKey, workDir string, log *zap.Logger) (*pose.Index, error) {
	posePath := filepath.Join(workDir, "poses.jsonl")
	found, err := p.storage.DownloadIfExists(ctx, key.PoseLogKey(), posePath)
	if err != nil {
		return nil, fmt.Errorf("download pose log: %w", err)
	}
	if !found {
		log.Info("no pose log for scan, frames will carry no pose", zap.String("pose_key", key.PoseLogKey()))
		return pose.Empty(), nil
	}

	f, err := os.Open(posePath)
	if err != nil {
		return nil, fmt.Errorf("open pose log: %w", err)
	}
	defer f.Close()

	idx, err := pose.BuildIndex(f, log)
	if err != nil {
		return nil, fmt.Errorf("build pose index: %w", err)
	}
	return idx, nil
}

// alignFrames builds one manifest entry per frame, attaching the best pose:
// exact frame_id match first, nearest-time match second, none otherwise. The
// two match types are mutually exclusive.
func alignFrames(framePaths []string, timestamps []float64, idx *pose.Index) []entity.FrameIndexEntry {
	entries := make([]entity.FrameIndexEntry, 0, len(framePaths))
	for i, framePath := range framePaths {
		frameID := strings.TrimSuffix(filepath.Base(framePath), filepath.Ext(framePath))
		entry := entity.FrameIndexEntry{
			FrameID:   frameID,
			TVideoSec: round6(timestamps[i]),
		}

		if match, ok := idx.ByFrameID(frameID); ok {
			entry.ARKitPose = &entity.ARKitPose{
				PoseFrameID:     match.FrameID,
				FrameIDMismatch: match.FrameID != frameID,
				TWorldCamera:    match.TWorldCamera,
				MatchType:       entity.MatchTypeFrameID,
			}
		} else if match, delta, ok := idx.NearestByTime(timestamps[i]); ok {
			t := round6(*match.TDeviceSec)
			d := round6(delta)
			entry.ARKitPose = &entity.ARKitPose{
				TWorldCamera: match.TWorldCamera,
				TDeviceSec:   &t,
				DeltaSec:     &d,
				MatchType:    entity.MatchTypeTime,
			}
		}

		entries = append(entries, entry)
	}
	return entries
}

func writeManifest(path string, entries []entity.FrameIndexEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (p *frameExtraction) uploadOutputs(ctx context.Context, key entity.ScanKey, framePaths []string, manifestPath string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.uploadConcurrency)

	prefix := key.FramesPrefix()
	for _, framePath := range framePaths {
		g.Go(func() error {
			return p.storage.UploadFile(gctx, prefix+"/"+filepath.Base(framePath), framePath, "image/jpeg")
		})
	}
	g.Go(func() error {
		return p.storage.UploadFile(gctx, prefix+"/"+manifestName, manifestPath, "application/json")
	})

	return g.Wait()
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func stageTimer(pipeline entity.Pipeline) func(stage string) {
	last := time.Now()
	return func(stage string) {
		metrics.JobProcessingDuration.WithLabelValues(string(pipeline), stage).Observe(time.Since(last).Seconds())
		last = time.Now()
	}
}
