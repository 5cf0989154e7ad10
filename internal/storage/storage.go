package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains the blob store abstraction: bytes keyed by name
// under a configured root. The filesystem backend is the default; the MinIO
// backend serves the same contract against an S3-compatible endpoint.

// PutObjectOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known; -1 lets the backend
// buffer or chunk as it supports. ContentType is optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is the blob store contract. Keys are trusted to be plain base names
// by the time they reach a backend; the ingestion layer sanitizes them.
// Writes carry no atomicity guarantee beyond the backend's own semantics.
type Storage interface {
	// Put stores an object under the given key, overwriting any previous
	// object with the same key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}
