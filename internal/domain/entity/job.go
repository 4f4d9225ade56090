package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Pipeline identifies which of the two transformations a job runs.
type Pipeline string

const (
	PipelineFrames  Pipeline = "frames"
	PipelineArchive Pipeline = "archive"
)

// ScanJob is the bookkeeping record for one pipeline run on one input object.
type ScanJob struct {
	ID            uuid.UUID
	Pipeline      Pipeline
	ObjectKey     string
	OutputKey     string
	Status        JobStatus
	FrameCount    int
	VideoDuration float64
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewScanJob(pipeline Pipeline, objectKey string, maxAttempts int) *ScanJob {
	now := time.Now().UTC()
	return &ScanJob{
		ID:          uuid.New(),
		Pipeline:    pipeline,
		ObjectKey:   objectKey,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *ScanJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *ScanJob) MarkCompleted(outputKey string, frameCount int, duration float64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.OutputKey = outputKey
	j.FrameCount = frameCount
	j.VideoDuration = duration
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *ScanJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *ScanJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
