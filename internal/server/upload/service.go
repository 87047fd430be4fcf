package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// uniqueTag keeps names distinct when files sharing a name are stored
// within the same millisecond.
var uniqueTag = func() string { return uuid.NewString()[:8] }

// Recorder observes finished uploads.
type Recorder interface {
	UploadStored(bytes int64)
	UploadFailed()
}

// Service orchestrates validation, compression and storage of assets.
type Service struct {
	store    ObjectStore
	logger   logging.Logger
	now      func() time.Time
	progress ProgressFunc
	recorder Recorder
}

// Option customizes a Service.
type Option func(*Service)

// WithProgress reports bytes written during each upload.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// WithClock replaces time.Now, for deterministic names in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder attaches an observer of upload outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func NewService(store ObjectStore, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger.With("module", "upload"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Validate see package-level Validate.
func (s *Service) Validate(f *File) ValidationResult {
	return Validate(f)
}

// Compress see package-level Compress.
func (s *Service) Compress(f *File, maxWidth int, quality float64) *File {
	out := Compress(f, maxWidth, quality)
	if out == f {
		s.logger.Debug(context.Background(), "compression skipped, keeping original", "name", f.Name, "type", f.ContentType)
	}
	return out
}

// Upload stores f under dir as <millis>_<tag>_<name> and returns once the
// durable download URL is known. Storage errors are returned as is.
func (s *Service) Upload(ctx context.Context, f *File, dir string) (models.UploadResult, error) {
	fileName := fmt.Sprintf("%d_%s_%s", s.now().UnixMilli(), uniqueTag(), baseName(f.Name))
	key := objectKey(dir, fileName)

	var body io.ReadSeeker = bytes.NewReader(f.Data)
	if s.progress != nil {
		body = &progressReader{r: bytes.NewReader(f.Data), key: key, total: f.Size(), progress: s.progress}
	}

	if err := s.store.Put(ctx, key, body, f.Size(), f.ContentType); err != nil {
		s.failed(ctx, key, err)
		return models.UploadResult{}, err
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		s.failed(ctx, key, err)
		return models.UploadResult{}, err
	}

	if s.recorder != nil {
		s.recorder.UploadStored(f.Size())
	}
	s.logger.Info(ctx, "upload stored", "key", key, "size", f.Size())

	return models.UploadResult{
		URL:        url,
		FileName:   fileName,
		Size:       f.Size(),
		UploadedAt: s.now(),
	}, nil
}

// UploadMultiple uploads all files concurrently. It succeeds only if every
// upload does; results follow the order of files.
func (s *Service) UploadMultiple(ctx context.Context, files []*File, dir string) ([]models.UploadResult, error) {
	results := make([]models.UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			r, err := s.Upload(gctx, f, dir)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Remove deletes the object behind a download URL. Errors from the store are
// returned unchanged.
func (s *Service) Remove(ctx context.Context, rawURL string) error {
	key, err := s.store.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info(ctx, "upload removed", "key", key)
	return nil
}

func (s *Service) failed(ctx context.Context, key string, err error) {
	if s.recorder != nil {
		s.recorder.UploadFailed()
	}
	s.logger.Error(ctx, "upload failed", "key", key, "error", err)
}

func objectKey(dir, name string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
