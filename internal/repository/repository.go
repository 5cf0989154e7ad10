package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.

import (
	"context"
	"errors"

	"imgapi/internal/model"
)

var (
	// ErrNotFound is returned by point lookups and conditional updates that
	// matched no row.
	ErrNotFound = errors.New("record not found")

	// ErrAccountNotFound is returned when an insert references an account
	// that does not exist. Every image must belong to an existing account.
	ErrAccountNotFound = errors.New("account not found")
)

// ImageRepository defines data access for images. Strictly persistence
// operations; no business logic here.
type ImageRepository interface {
	// Create inserts a new image record. The caller provides all fields,
	// including the generated ImageID. Fails with ErrAccountNotFound when the
	// referenced account does not exist.
	Create(ctx context.Context, img *model.Image) error

	// Publish atomically transitions a draft record to published, setting its
	// name. The update is conditional on draft=true, so it succeeds at most
	// once per image; ErrNotFound when no draft row matches the id.
	Publish(ctx context.Context, imageID, name string) error

	// FindPublished returns the image only when image id and account id match
	// and the record is published. Any miss is ErrNotFound; a draft or a
	// foreign account is indistinguishable from an absent record.
	FindPublished(ctx context.Context, imageID, accountID string) (*model.Image, error)
}

// AccountRepository exposes the account lookups the ingestion flows need.
type AccountRepository interface {
	Exists(ctx context.Context, accountID string) (bool, error)
}

// VideoRepository backs the experimental video-serving stub.
type VideoRepository interface {
	FindByID(ctx context.Context, videoID string) (*model.Video, error)
}
