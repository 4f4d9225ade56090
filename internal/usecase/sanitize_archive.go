package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scanforge/scan-processing-service/internal/domain/entity"
	"github.com/scanforge/scan-processing-service/internal/domain/port"
	"github.com/scanforge/scan-processing-service/internal/infra/metrics"
	"github.com/scanforge/scan-processing-service/internal/usd"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// archiveSanitization builds an architecture-only parametric model from a
// room-scan archive and republishes the whole tree under processed/. The
// original model stays in place so both variants coexist.
type archiveSanitization struct {
	storage            port.ObjectStorage
	logger             *zap.Logger
	archiveName        string
	parametricModel    string
	objectPrimName     string
	architectureSuffix string
}

func (p *archiveSanitization) Run(ctx context.Context, key entity.ScanKey, workDir string, log *zap.Logger) (*pipelineResult, error) {
	tracer := otel.Tracer("usecase")
	stage := stageTimer(entity.PipelineArchive)

	// Download and extract the outer archive.
	ctx2, spanDl := tracer.Start(ctx, "download_archive")
	archivePath := filepath.Join(workDir, p.archiveName)
	err := p.storage.Download(ctx2, key.Key, archivePath)
	spanDl.End()
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}

	extractedDir := filepath.Join(workDir, "extracted")
	if err := usd.Extract(archivePath, extractedDir); err != nil {
		return nil, fmt.Errorf("extract archive: %w", err)
	}
	stage("download")

	// The parametric model may sit anywhere in the tree; its absence is a
	// permanent failure and nothing is published.
	modelPath, err := usd.FindFileNamed(extractedDir, p.parametricModel)
	if err != nil {
		return nil, err
	}

	_, spanSan := tracer.Start(ctx, "sanitize_model")
	archPath, err := p.sanitizeModel(modelPath, workDir, log)
	spanSan.End()
	if err != nil {
		return nil, err
	}
	stage("sanitize")

	// Re-zip the tree (original members plus the new model) and upload.
	ctx4, spanUp := tracer.Start(ctx, "upload_processed")
	defer spanUp.End()
	processedPath := filepath.Join(workDir, "processed.zip")
	if err := usd.ZipTree(extractedDir, processedPath); err != nil {
		return nil, fmt.Errorf("zip processed tree: %w", err)
	}

	outputKey := key.ProcessedPrefix() + "/" + p.archiveName
	if err := p.storage.UploadFile(ctx4, outputKey, processedPath, "application/zip"); err != nil {
		return nil, fmt.Errorf("upload processed archive: %w", err)
	}
	stage("upload")

	metrics.ArchivesSanitizedTotal.Inc()
	log.Info("archive pipeline finished",
		zap.String("model", modelPath),
		zap.String("architecture_model", archPath),
		zap.String("output_key", outputKey),
	)

	return &pipelineResult{OutputKey: outputKey}, nil
}

// sanitizeModel extracts the parametric container, strips the object subtree
// out of every text scene member, and repackages the result next to the
// original with the architecture suffix. Returns the new container path.
func (p *archiveSanitization) sanitizeModel(modelPath, workDir string, log *zap.Logger) (string, error) {
	modelDir := filepath.Join(workDir, "model")
	if err := usd.Extract(modelPath, modelDir); err != nil {
		return "", fmt.Errorf("extract parametric model: %w", err)
	}

	sanitized := 0
	err := filepath.Walk(modelDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !usd.IsSceneFile(path) {
			return err
		}
		doc, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		stripped := usd.StripPrim(string(doc), p.objectPrimName)
		if stripped == string(doc) {
			return nil
		}
		sanitized++
		return os.WriteFile(path, []byte(stripped), info.Mode())
	})
	if err != nil {
		return "", fmt.Errorf("sanitize scene files: %w", err)
	}
	log.Info("scene files sanitized",
		zap.Int("changed", sanitized),
		zap.String("target_prim", p.objectPrimName),
	)

	ext := filepath.Ext(p.parametricModel)
	archName := strings.TrimSuffix(p.parametricModel, ext) + p.architectureSuffix + ext
	archPath := filepath.Join(filepath.Dir(modelPath), archName)
	if err := usd.WritePackage(modelDir, archPath); err != nil {
		return "", fmt.Errorf("repackage model: %w", err)
	}
	return archPath, nil
}
