package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanproc_jobs_processed_total",
		Help: "Total number of scan jobs processed, by pipeline and status",
	}, []string{"pipeline", "status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scanproc_job_processing_duration_seconds",
		Help:    "Duration of scan pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"pipeline", "stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanproc_frames_extracted_total",
		Help: "Total number of video frames extracted across all jobs",
	})

	PosesMatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanproc_poses_matched_total",
		Help: "Frame-pose alignment outcomes, by match type (frame_id, time, none)",
	}, []string{"match_type"})

	ArchivesSanitizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanproc_archives_sanitized_total",
		Help: "Total number of room-scan archives sanitized",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanproc_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanproc_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
