package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/subtitleflow/internal/gcp"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

const contentType = "application/x-subrip; charset=utf-8"

// GCSStore keeps artifacts as objects in one bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
}

// NewGCSStore wraps a bucket handle.
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket)}
}

func (s *GCSStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	return w, nil
}

func (s *GCSStore) Put(ctx context.Context, name, content string) error {
	return gcp.SaveToGCSAtomically(ctx, s.bucket, name, content)
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("artifact %s: %w", name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return r, nil
}
