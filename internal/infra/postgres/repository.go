package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scanforge/scan-processing-service/internal/domain/entity"
	"github.com/scanforge/scan-processing-service/internal/domain/port"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `id, pipeline, object_key, output_key, status, frame_count,
			video_duration, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at`

func (r *JobRepository) Create(ctx context.Context, job *entity.ScanJob) error {
	query := `
		INSERT INTO scan_jobs (` + jobColumns + `
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Pipeline), job.ObjectKey, job.OutputKey, string(job.Status),
		job.FrameCount, job.VideoDuration,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.ScanJob) error {
	query := `
		UPDATE scan_jobs SET
			status=$2, output_key=$3, frame_count=$4, video_duration=$5,
			attempt=$6, error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.OutputKey, job.FrameCount,
		job.VideoDuration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ScanJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scan_jobs WHERE id=$1`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return job, nil
}

func (r *JobRepository) FindLatestByKey(ctx context.Context, pipeline entity.Pipeline, objectKey string) (*entity.ScanJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM scan_jobs WHERE pipeline=$1 AND object_key=$2
		ORDER BY created_at DESC LIMIT 1`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, string(pipeline), objectKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest job for %s: %w", objectKey, err)
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *JobRepository) scanJob(row rowScanner) (*entity.ScanJob, error) {
	job := &entity.ScanJob{}
	var pipeline, status string
	err := row.Scan(
		&job.ID, &pipeline, &job.ObjectKey, &job.OutputKey, &status,
		&job.FrameCount, &job.VideoDuration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Pipeline = entity.Pipeline(pipeline)
	job.Status = entity.JobStatus(status)
	return job, nil
}
