package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	errs "github.com/edgard/foodlens/internal/errors"
)

// ImagesRoute is the HTTP prefix under which local objects are served.
const ImagesRoute = "/images"

// LocalStore keeps objects in <root>/<bucket>/ on an afero filesystem.
type LocalStore struct {
	fs      afero.Fs
	bucket  string
	baseURL string
	log     *slog.Logger
	now     func() time.Time
}

// NewLocalStoreAt stores objects under dir on the OS filesystem.
func NewLocalStoreAt(dir, bucket, publicBaseURL string, log *slog.Logger) *LocalStore {
	return NewLocalStore(afero.NewBasePathFs(afero.NewOsFs(), dir), bucket, publicBaseURL, log)
}

// NewLocalStore stores objects on fsys. Object URLs are
// publicBaseURL + ImagesRoute + "/" + bucket + "/" + key.
func NewLocalStore(fsys afero.Fs, bucket, publicBaseURL string, log *slog.Logger) *LocalStore {
	if log == nil {
		log = slog.Default()
	}
	return &LocalStore{
		fs:      fsys,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		log:     log.With("component", "local_storage"),
		now:     time.Now,
	}
}

// dir is rooted so keys match the paths requested through Handler.
func (s *LocalStore) dir() string {
	return "/" + s.bucket
}

func (s *LocalStore) EnsureBucket(_ context.Context) error {
	exists, err := afero.DirExists(s.fs, s.dir())
	if err != nil {
		return errs.NewStorageError("failed to check bucket", err)
	}
	if exists {
		s.log.Debug("Bucket exists", "bucket", s.bucket)
		return nil
	}
	if err := s.fs.MkdirAll(s.dir(), 0o755); err != nil {
		return errs.NewStorageError("failed to create bucket", err)
	}
	s.log.Info("Created bucket", "bucket", s.bucket)
	return nil
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, contentType, filename string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, errs.NewStorageError("upload cancelled", err)
	}

	key := ObjectName(s.now(), contentType, filename)
	if err := s.fs.MkdirAll(s.dir(), 0o755); err != nil {
		return Object{}, errs.NewStorageError("failed to create bucket", err)
	}
	if err := afero.WriteFile(s.fs, path.Join(s.dir(), key), data, 0o644); err != nil {
		s.log.ErrorContext(ctx, "Failed to write object", "key", key, "error", err)
		return Object{}, errs.NewStorageError("failed to store image", err)
	}

	obj := Object{
		Path: key,
		URL:  s.baseURL + ImagesRoute + "/" + s.bucket + "/" + key,
	}
	s.log.DebugContext(ctx, "Stored image", "key", key, "size", len(data), "url", obj.URL)
	return obj, nil
}

func (s *LocalStore) Delete(ctx context.Context, objectPath string) error {
	if objectPath == "" || strings.Contains(objectPath, "..") {
		return errs.NewValidationError("invalid object path", nil)
	}
	err := s.fs.Remove(path.Join(s.dir(), objectPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.ErrorContext(ctx, "Failed to delete object", "key", objectPath, "error", err)
		return errs.NewStorageError("failed to delete image", err)
	}
	return nil
}

// Handler serves stored objects; mount it at ImagesRoute.
func (s *LocalStore) Handler() http.Handler {
	httpFs := afero.NewHttpFs(s.fs)
	return http.StripPrefix(ImagesRoute, http.FileServer(httpFs.Dir("/")))
}
