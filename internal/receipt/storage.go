// Package receipt stores uploaded receipt images in object storage and
// hands back the URL recorded on the transaction.
package receipt

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Storage persists a receipt image under key and returns its public URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// GCS stores receipts in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("writing receipt: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
