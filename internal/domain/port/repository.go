package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/scanforge/scan-processing-service/internal/domain/entity"
)

// ErrJobNotFound reports that no job record exists for the lookup. Callers use
// it to tell "first delivery" apart from a repository outage.
var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job *entity.ScanJob) error
	Update(ctx context.Context, job *entity.ScanJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ScanJob, error)
	// FindLatestByKey returns the most recent job for an input object, used to
	// resume retry accounting across redeliveries of the same notification.
	FindLatestByKey(ctx context.Context, pipeline entity.Pipeline, objectKey string) (*entity.ScanJob, error)
}
