package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Local stores objects as plain files inside a single directory.
// Writes go through a temp file and rename, so readers never observe partial files.
// The content type and metadata given to Put live in a hidden sidecar file.
type Local struct {
	dir string
}

const metaPrefix = ".meta-"

type localMeta struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

var _ Storage = (*Local)(nil)

// NewLocal resolves dir against the working directory and creates it if missing.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Local{dir: abs}, nil
}

// Dir returns the absolute uploads directory.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, key), nil
}

// Put copies r into the uploads directory under key.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	dst, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, fmt.Errorf("write object: %w", errors.Join(copyErr, closeErr))
	}
	if opt.Size >= 0 && written != opt.Size {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, fmt.Errorf("write object: wrote %d bytes, expected %d", written, opt.Size)
	}
	if err := l.writeMeta(key, localMeta{ContentType: opt.ContentType, Metadata: opt.Metadata}); err != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		_ = os.Remove(l.metaPath(key))
		return ObjectInfo{}, fmt.Errorf("commit object: %w", err)
	}
	return l.Stat(ctx, key)
}

func (l *Local) metaPath(key string) string {
	return filepath.Join(l.dir, metaPrefix+key+".json")
}

func (l *Local) writeMeta(key string, m localMeta) error {
	if m.ContentType == "" && len(m.Metadata) == 0 {
		if err := os.Remove(l.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear object metadata: %w", err)
		}
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode object metadata: %w", err)
	}
	if err := os.WriteFile(l.metaPath(key), b, 0o644); err != nil {
		return fmt.Errorf("write object metadata: %w", err)
	}
	return nil
}

// readMeta returns the sidecar for key; a missing or unreadable sidecar yields ok=false.
func (l *Local) readMeta(key string) (localMeta, bool) {
	var m localMeta
	b, err := os.ReadFile(l.metaPath(key))
	if err != nil {
		return m, false
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, false
	}
	return m, true
}

// Get opens the file stored under key.
func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := l.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(filepath.Join(l.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	return f, info, nil
}

// Stat reports size, modification time and content type for key.
func (l *Local) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, err
	}
	if fi.IsDir() {
		return ObjectInfo{}, ErrNotFound
	}
	info := ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}
	if m, ok := l.readMeta(key); ok {
		info.ContentType = m.ContentType
		info.Metadata = m.Metadata
	}
	if info.ContentType == "" {
		info.ContentType = sniffFile(p)
	}
	return info, nil
}

// Delete removes the file stored under key.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := os.Remove(l.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object metadata: %w", err)
	}
	return nil
}

// List returns every regular, non-hidden file in the uploads directory.
func (l *Local) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	out := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, ObjectInfo{
			Key:          e.Name(),
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
		})
	}
	return out, nil
}

// sniffFile detects the type of files stored without a recorded content type.
// The filename extension is never trusted.
func sniffFile(p string) string {
	if m, err := mimetype.DetectFile(p); err == nil {
		return m.String()
	}
	return "application/octet-stream"
}
