package storage

import (
	"context"
	"io"

	"github.com/dukerupert/bidwell/internal"
)

// Storage is a flat key/value object store. Keys are slash-separated
// paths such as invoices/<owner>/INV-0042.json.
type Storage interface {
	// Put writes content under key and returns a URL for it.
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Get opens the object at key. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error

	URL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}

// NewStorage picks the provider named in cfg. An empty provider means local.
func NewStorage(cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "r2":
		return NewR2Storage(R2Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2BucketName,
			PublicURL:   cfg.R2PublicURL,
		})
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}
