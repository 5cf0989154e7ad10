package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// fsStorage implements Storage on a local directory. Safe for concurrent use
// as long as callers do not race writes on the same key, which the lifecycle
// rules out (each image owns its file names).
type fsStorage struct {
	root string
}

// NewFS creates a filesystem storage backend rooted at dir, creating the
// directory if needed.
func NewFS(dir string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &fsStorage{root: dir}, nil
}

func (f *fsStorage) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Put writes the object to <root>/<key>, overwriting an existing file.
func (f *fsStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	fullPath := f.path(key)

	file, err := os.Create(fullPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("write file: %w", err)
	}

	st, err := file.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat file: %w", err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         written,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
	}, nil
}

// Get opens the object for reading.
func (f *fsStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	fullPath := f.path(key)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, err
	}

	return file, ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}
