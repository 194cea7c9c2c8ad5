// Package filestore stores item images and other binary attachments behind a
// single interface with local disk, S3 and GCS implementations.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("filestore: object not found")

// Store is the storage port used by the document services.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and configures a Store implementation.
type Config struct {
	Driver    string
	LocalDir  string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Open builds the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocal(cfg.LocalDir)
	case "memory":
		return NewMemory(), nil
	case "s3":
		return NewS3(ctx, cfg, logger)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Endpoint)
	default:
		return nil, fmt.Errorf("filestore: unknown driver %q", cfg.Driver)
	}
}

// ImagePrefix is the key namespace for quotation item images.
const ImagePrefix = "quotation_items/"

// NewImageKey returns a fresh image key keeping the extension of ref.
// Extensionless refs default to ".png".
func NewImageKey(ref string) string {
	ext := strings.ToLower(path.Ext(ref))
	if ext == "" || len(ext) > 6 {
		ext = ".png"
	}
	return ImagePrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// CleanKey normalises a stored reference into a storage key.
func CleanKey(ref string) string {
	key := strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	key = strings.TrimPrefix(key, "media/")
	key = strings.ReplaceAll(key, ImagePrefix+ImagePrefix, ImagePrefix)
	if key == "" {
		return ""
	}
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return ""
	}
	return cleaned
}
