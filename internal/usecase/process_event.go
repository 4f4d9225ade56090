package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scanforge/scan-processing-service/internal/domain/entity"
	"github.com/scanforge/scan-processing-service/internal/domain/port"
	"github.com/scanforge/scan-processing-service/internal/infra/metrics"
	"github.com/scanforge/scan-processing-service/internal/usd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessScanEventUseCase dispatches object-finalize notifications to the two
// transformation pipelines. Keys that match no trigger predicate are acked and
// ignored; bucket listeners fire for every object under the root prefix.
type ProcessScanEventUseCase struct {
	repo      port.JobRepository
	storage   port.ObjectStorage
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger

	frames  *frameExtraction
	archive *archiveSanitization

	tempDir     string
	maxRetry    int
	rootPrefix  string
	videoName   string
	archiveName string
}

type ProcessScanEventConfig struct {
	TempDir    string
	MaxRetries int

	RootPrefix  string
	VideoName   string
	ArchiveName string

	FPS               int
	UploadConcurrency int

	ParametricModel    string
	ObjectPrimName     string
	ArchitectureSuffix string
}

func NewProcessScanEventUseCase(
	repo port.JobRepository,
	storage port.ObjectStorage,
	transcoder port.FrameTranscoder,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessScanEventConfig,
) *ProcessScanEventUseCase {
	return &ProcessScanEventUseCase{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		frames: &frameExtraction{
			storage:           storage,
			transcoder:        transcoder,
			logger:            logger,
			fps:               cfg.FPS,
			uploadConcurrency: cfg.UploadConcurrency,
		},
		archive: &archiveSanitization{
			storage:            storage,
			logger:             logger,
			archiveName:        cfg.ArchiveName,
			parametricModel:    cfg.ParametricModel,
			objectPrimName:     cfg.ObjectPrimName,
			architectureSuffix: cfg.ArchitectureSuffix,
		},
		tempDir:     cfg.TempDir,
		maxRetry:    cfg.MaxRetries,
		rootPrefix:  cfg.RootPrefix,
		videoName:   cfg.VideoName,
		archiveName: cfg.ArchiveName,
	}
}

// pipelineResult is what a successful pipeline run reports back for job
// bookkeeping and the status message.
type pipelineResult struct {
	OutputKey     string
	FrameCount    int
	VideoDuration float64
}

func (uc *ProcessScanEventUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessScanEventUseCase.Execute")
	defer span.End()

	events, err := entity.ParseBucketNotification(rawMsg)
	if err != nil {
		uc.logger.Error("failed to parse bucket notification", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "parse_error: "+err.Error())
		return nil
	}

	for _, ev := range events {
		if err := uc.processEvent(ctx, ev, rawMsg); err != nil {
			return err
		}
	}
	return nil
}

func (uc *ProcessScanEventUseCase) processEvent(ctx context.Context, ev entity.ObjectEvent, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessScanEventUseCase.processEvent")
	defer span.End()

	var (
		pipeline entity.Pipeline
		key      entity.ScanKey
	)
	if k, ok := entity.MatchVideoKey(ev.Key, uc.rootPrefix, uc.videoName); ok {
		pipeline, key = entity.PipelineFrames, k
	} else if k, ok := entity.MatchArchiveKey(ev.Key, uc.rootPrefix, uc.archiveName); ok {
		pipeline, key = entity.PipelineArchive, k
	} else {
		uc.logger.Debug("object key matches no pipeline, ignoring", zap.String("key", ev.Key))
		return nil
	}

	span.SetAttributes(
		attribute.String("job.pipeline", string(pipeline)),
		attribute.String("job.object_key", ev.Key),
	)

	log := uc.logger.With(zap.String("pipeline", string(pipeline)), zap.String("object_key", ev.Key))

	job, err := uc.repo.FindLatestByKey(ctx, pipeline, ev.Key)
	if err != nil && !errors.Is(err, port.ErrJobNotFound) {
		// A repository outage must not reset retry accounting; requeue.
		log.Error("failed to look up job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}
	if err != nil || job.Status == entity.JobStatusCompleted {
		// First delivery for this object, or a freshly re-uploaded input.
		job = entity.NewScanJob(pipeline, ev.Key, uc.maxRetry)
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}
	log = log.With(zap.String("job_id", job.ID.String()))

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	totalTimer := time.Now()

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var result *pipelineResult
	switch pipeline {
	case entity.PipelineFrames:
		result, err = uc.frames.Run(ctx, key, workDir, log)
	case entity.PipelineArchive:
		result, err = uc.archive.Run(ctx, key, workDir, log)
	}
	if err != nil {
		if errors.Is(err, usd.ErrModelNotFound) {
			// Deterministic for this input: retrying cannot succeed.
			log.Error("fatal: archive has no parametric model, aborting without output", zap.Error(err))
			return uc.handlePermanentFailure(ctx, job, rawMsg, err.Error(), log)
		}
		log.Error("pipeline failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, rawMsg, err.Error(), log)
	}

	job.MarkCompleted(result.OutputKey, result.FrameCount, result.VideoDuration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues(string(pipeline), "completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues(string(pipeline), "total").Observe(time.Since(totalTimer).Seconds())

	log.Info("job completed successfully",
		zap.String("output_key", result.OutputKey),
		zap.Int("frame_count", result.FrameCount),
	)
	return nil
}

func (uc *ProcessScanEventUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.ScanJob,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessScanEventUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.ScanJob,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Pipeline), "dlq").Inc()

	_ = uc.notifier.NotifyFailure(ctx, job.ID.String(), job.ObjectKey, errMsg)

	return nil
}

func (uc *ProcessScanEventUseCase) publishStatus(ctx context.Context, job *entity.ScanJob, log *zap.Logger) {
	statusMsg := entity.ScanStatusMessage{
		JobID:        job.ID,
		Pipeline:     job.Pipeline,
		Status:       job.Status,
		ObjectKey:    job.ObjectKey,
		OutputKey:    job.OutputKey,
		FrameCount:   job.FrameCount,
		Duration:     job.VideoDuration,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
