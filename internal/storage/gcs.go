package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/edgard/foodlens/internal/config"
	errs "github.com/edgard/foodlens/internal/errors"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client    *gcs.Client
	bucket    string
	project   string
	publicURL string
	log       *slog.Logger
	now       func() time.Time
}

// NewGCSStore connects with the credentials file when set, otherwise with
// application default credentials.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	return &GCSStore{
		client:    client,
		bucket:    cfg.Bucket,
		project:   cfg.Project,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log.With("component", "gcs_storage"),
		now:       time.Now,
	}, nil
}

func (s *GCSStore) EnsureBucket(ctx context.Context) error {
	bkt := s.client.Bucket(s.bucket)
	_, err := bkt.Attrs(ctx)
	if err == nil {
		s.log.InfoContext(ctx, "Bucket exists", "bucket", s.bucket)
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return errs.NewStorageError("failed to check bucket", err)
	}
	if s.project == "" {
		return errs.NewStorageError(fmt.Sprintf("bucket %s does not exist and no project is configured to create it", s.bucket), nil)
	}

	if err := bkt.Create(ctx, s.project, &gcs.BucketAttrs{UniformBucketLevelAccess: gcs.UniformBucketLevelAccess{Enabled: true}}); err != nil {
		return errs.NewStorageError("failed to create bucket", err)
	}
	s.log.InfoContext(ctx, "Created bucket", "bucket", s.bucket, "project", s.project)
	return nil
}

func (s *GCSStore) Upload(ctx context.Context, data []byte, contentType, filename string) (Object, error) {
	key := ObjectName(s.now(), contentType, filename)

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.log.ErrorContext(ctx, "Failed to write object", "key", key, "error", err)
		return Object{}, errs.NewStorageError("failed to upload image", err)
	}
	if err := w.Close(); err != nil {
		s.log.ErrorContext(ctx, "Failed to finalize object", "key", key, "error", err)
		return Object{}, errs.NewStorageError("failed to upload image", err)
	}

	obj := Object{Path: key, URL: s.publicURL + "/" + key}
	s.log.DebugContext(ctx, "Uploaded image", "key", key, "size", len(data), "url", obj.URL)
	return obj, nil
}

func (s *GCSStore) Delete(ctx context.Context, objectPath string) error {
	err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		s.log.ErrorContext(ctx, "Failed to delete object", "key", objectPath, "error", err)
		return errs.NewStorageError("failed to delete image", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
