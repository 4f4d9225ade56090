package port

import "context"

// ObjectStorage is the shared object store both pipelines read from and write
// to. Download of the optional pose sidecar goes through DownloadIfExists so
// absence is distinguishable from failure.
type ObjectStorage interface {
	Download(ctx context.Context, objectKey string, destPath string) error
	DownloadIfExists(ctx context.Context, objectKey string, destPath string) (bool, error)
	UploadFile(ctx context.Context, objectKey string, srcPath string, contentType string) error
}
