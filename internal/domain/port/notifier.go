package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, jobID string, objectKey string, errorMsg string) error
}
