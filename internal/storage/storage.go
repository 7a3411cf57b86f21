// Package storage holds the uploads store used by the upload and retrieval endpoints.
// Keys are flat generated filenames; nested paths are rejected.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that could escape the store.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the uploads store. Implementations must be safe for concurrent use.
type Storage interface {
	// Put writes an object under key, replacing any existing one.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get opens an object for streaming along with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without opening the content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object. Missing objects yield ErrNotFound.
	Delete(ctx context.Context, key string) error
	// List returns info for every stored object.
	List(ctx context.Context) ([]ObjectInfo, error)
}

// ValidateKey rejects empty keys, path separators, parent references and hidden names.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", strings.HasPrefix(key, "."):
		return ErrInvalidKey
	case strings.ContainsAny(key, `/\`), strings.Contains(key, ".."):
		return ErrInvalidKey
	case strings.ContainsRune(key, 0):
		return ErrInvalidKey
	}
	return nil
}
