package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket using application
// default credentials, or an emulator when an endpoint is configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a GCS client for bucket. A non-empty endpoint targets an
// emulator without authentication.
func NewGCS(ctx context.Context, bucket, endpoint string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("filestore: gcs bucket is required")
	}
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore: gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(key)
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("filestore: gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := g.object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("filestore: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("filestore: gcs close %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Copy(ctx context.Context, srcKey, dstKey string) error {
	if _, err := g.object(dstKey).CopierFrom(g.object(srcKey)).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("filestore: gcs copy %s: %w", srcKey, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("filestore: gcs delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filestore: gcs attrs %s: %w", key, err)
	}
	return true, nil
}

// Close releases the GCS client.
func (g *GCS) Close() error {
	return g.client.Close()
}
