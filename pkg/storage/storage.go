// Package storage provides owner-scoped blob storage with S3-compatible,
// Azure Blob Storage, and in-memory implementations.
//
// Every blob lives under a deterministic key of the form owner/category/filename.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/lifecycle"
)

// Category partitions an owner's blobs.
type Category string

// Blob categories.
const (
	CategoryPrimary Category = "primary"
	CategoryArtwork Category = "artwork"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryPrimary || c == CategoryArtwork
}

// Object is a downloaded blob. The caller must close Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the bucket or container.
	Start(lc *lifecycle.Coordinator) error
	// Put streams data to owner/category/filename and returns that key.
	Put(ctx context.Context, owner string, category Category, filename string, r io.Reader, size int64, contentType string) (string, error)
	// Get returns the blob at key, which must belong to owner and category.
	// Returns ErrNotFound if the blob does not exist.
	Get(ctx context.Context, owner string, category Category, key string) (*Object, error)
	// Delete removes the blob at key. Deleting an absent blob is not an error.
	Delete(ctx context.Context, owner string, category Category, key string) error
	// List returns the sorted category/filename names stored for owner.
	List(ctx context.Context, owner string) ([]string, error)
}

// New creates a storage system for the configured provider.
// Clients are constructed but no connection is made until Start is called.
func New(cfg *Config, logger *zap.Logger) (System, error) {
	logger = logger.With(zap.String("system", "storage"), zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case ProviderS3:
		return newS3(cfg, logger)
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderMemory:
		return NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// Key builds the deterministic storage key for a blob.
func Key(owner string, category Category, filename string) (string, error) {
	if owner == "" || filename == "" {
		return "", ErrEmptyKey
	}
	if !category.Valid() {
		return "", ErrInvalidCategory
	}
	if !validSegment(owner) || !validSegment(filename) {
		return "", ErrInvalidKey
	}
	return owner + "/" + string(category) + "/" + filename, nil
}

// Filename returns the last segment of a storage key.
func Filename(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// ownerPrefix returns the listing prefix for an owner's blobs.
func ownerPrefix(owner string) (string, error) {
	if owner == "" {
		return "", ErrEmptyKey
	}
	if !validSegment(owner) {
		return "", ErrInvalidKey
	}
	return owner + "/", nil
}

// scopedKey validates that key lies within owner/category.
// A bare filename is accepted and expanded to the full key.
func scopedKey(owner string, category Category, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if !strings.Contains(key, "/") {
		return Key(owner, category, key)
	}
	prefix, err := Key(owner, category, "_")
	if err != nil {
		return "", err
	}
	prefix = strings.TrimSuffix(prefix, "_")

	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || !validSegment(rest) {
		return "", ErrInvalidKey
	}
	return key, nil
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}
