package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/scanforge/scan-processing-service/internal/domain/entity"
	"github.com/scanforge/scan-processing-service/internal/domain/port"
)

// fakeStorage backs the ObjectStorage port with a local directory, one file
// per object key.
type fakeStorage struct {
	mu           sync.Mutex
	dir          string
	contentTypes map[string]string
}

func newFakeStorage(dir string) *fakeStorage {
	return &fakeStorage{dir: dir, contentTypes: make(map[string]string)}
}

func (s *fakeStorage) objectPath(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *fakeStorage) put(key string, data []byte) error {
	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *fakeStorage) Download(_ context.Context, key, dest string) error {
	data, err := os.ReadFile(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("no such object %s: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (s *fakeStorage) DownloadIfExists(ctx context.Context, key, dest string) (bool, error) {
	if _, err := os.Stat(s.objectPath(key)); os.IsNotExist(err) {
		return false, nil
	}
	return true, s.Download(ctx, key, dest)
}

func (s *fakeStorage) UploadFile(_ context.Context, key, src, contentType string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := s.put(key, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.contentTypes[key] = contentType
	s.mu.Unlock()
	return nil
}

func (s *fakeStorage) uploadedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.contentTypes))
	for k := range s.contentTypes {
		keys = append(keys, k)
	}
	return keys
}

// fakeTranscoder writes n placeholder frames and reports canned timestamps.
type fakeTranscoder struct {
	frames     int
	timestamps []float64
	duration   float64
	err        error
}

func (t *fakeTranscoder) ExtractFrames(_ context.Context, _ string, outputDir string) (*port.TranscodeResult, error) {
	if t.err != nil {
		return nil, t.err
	}
	paths := make([]string, 0, t.frames)
	for i := 1; i <= t.frames; i++ {
		p := filepath.Join(outputDir, fmt.Sprintf("%06d.jpg", i))
		if err := os.WriteFile(p, []byte("jpeg"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return &port.TranscodeResult{
		FramePaths:    paths,
		Timestamps:    t.timestamps,
		VideoDuration: t.duration,
	}, nil
}

// fakeRepo keeps jobs in memory keyed by id. findErr, when set, is returned
// from FindLatestByKey to simulate a repository outage.
type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*entity.ScanJob
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*entity.ScanJob)}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.ScanJob) error {
	return r.Create(context.Background(), job)
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, fmt.Errorf("job not found")
}

func (r *fakeRepo) FindLatestByKey(_ context.Context, pipeline entity.Pipeline, objectKey string) (*entity.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var latest *entity.ScanJob
	for _, j := range r.jobs {
		if j.Pipeline != pipeline || j.ObjectKey != objectKey {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, port.ErrJobNotFound
	}
	cp := *latest
	return &cp, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	statuses [][]byte
}

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return nil
}

type fakeDLQ struct {
	mu      sync.Mutex
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, _, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}
