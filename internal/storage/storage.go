// Package storage keeps normalized food images in an artifact store: a local
// directory served over HTTP or a Google Cloud Storage bucket.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/foodlens/internal/config"
)

// Object identifies a stored image.
type Object struct {
	// Path is the object key inside the bucket.
	Path string
	// URL is publicly resolvable and never changes after upload.
	URL string
}

// Store is an artifact store. Upload failures are StorageErrors.
type Store interface {
	// EnsureBucket creates the bucket when it does not exist yet.
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, data []byte, contentType, filename string) (Object, error)
	// Delete removes an object; a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectName builds a unique key of the form <yyyymmdd_HHMMSS>_<8 hex chars><ext>.
// The extension follows contentType, falling back to the filename's.
func ObjectName(now time.Time, contentType, filename string) string {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		} else if fe := path.Ext(filename); fe != "" {
			ext = strings.ToLower(fe)
		} else {
			ext = ".jpg"
		}
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s%s", now.UTC().Format("20060102_150405"), id, ext)
}

// New builds the store selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return NewGCSStore(ctx, cfg.Storage, log)
	case "local":
		return NewLocalStoreAt(cfg.Storage.LocalDir, cfg.Storage.Bucket, cfg.HTTP.PublicBaseURL, log), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
