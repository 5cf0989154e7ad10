package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"imgapi/internal/convert"
	"imgapi/internal/model"
	"imgapi/internal/repository"
	"imgapi/internal/storage"
)

var (
	// ErrNotFound covers every retrieval and transition miss: unknown id,
	// wrong account, still-draft record, or a missing converted artifact.
	// Callers cannot tell these apart on purpose.
	ErrNotFound = errors.New("not found")

	ErrFilenameRequired = errors.New("filename is required")
)

// UploadSlot is the result of reserving a two-step upload: the new image id
// and the URL the client will POST the payload to.
type UploadSlot struct {
	ImageID   string `json:"id"`
	UploadURL string `json:"uploadURL"`
}

// ConvertQueue is the handoff to the deferred store-and-convert pipeline.
// Enqueue must not block the request path.
type ConvertQueue interface {
	Enqueue(key string, payload []byte)
}

// ImageService defines the ingestion and retrieval use cases for images.
type ImageService interface {
	// RequestUploadSlot reserves an upload: it creates a draft image record
	// for the account and returns its id plus the URL to POST the payload to.
	RequestUploadSlot(ctx context.Context, accountID string) (*UploadSlot, error)

	// CompleteUpload finalizes a previously reserved upload. The record is
	// published (draft=false, name set from the filename) before the payload
	// write and conversion run on the background pipeline, so a retrieval
	// racing this call may still miss the artifact. ErrNotFound when no draft
	// record with the id exists, which also blocks re-finalization.
	CompleteUpload(ctx context.Context, imageID, filename string, payload []byte) error

	// DirectUpload is the single-step flow: create the record, then apply the
	// same effect sequence as CompleteUpload against it. Returns the new id.
	DirectUpload(ctx context.Context, accountID, filename string, payload []byte) (string, error)

	// Get returns the converted artifact's bytes for a published image owned
	// by the account. Everything else is ErrNotFound.
	Get(ctx context.Context, accountID, imageID string) ([]byte, error)
}

type imageService struct {
	images   repository.ImageRepository
	accounts repository.AccountRepository
	store    storage.Storage
	queue    ConvertQueue
	appHost  string
}

// NewImageService constructs an ImageService.
func NewImageService(
	images repository.ImageRepository,
	accounts repository.AccountRepository,
	store storage.Storage,
	queue ConvertQueue,
	appHost string,
) ImageService {
	return &imageService{
		images:   images,
		accounts: accounts,
		store:    store,
		queue:    queue,
		appHost:  appHost,
	}
}

func (s *imageService) RequestUploadSlot(ctx context.Context, accountID string) (*UploadSlot, error) {
	ok, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	img := &model.Image{
		ImageID:    uuid.New().String(),
		Name:       nil,
		UploadedAt: time.Now().UTC(),
		Draft:      true,
		AccountID:  accountID,
	}
	if err := s.images.Create(ctx, img); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create image record: %w", err)
	}

	uploadURL, err := url.JoinPath(s.appHost, "cloudflare", img.ImageID)
	if err != nil {
		return nil, fmt.Errorf("build upload url: %w", err)
	}

	return &UploadSlot{ImageID: img.ImageID, UploadURL: uploadURL}, nil
}

func (s *imageService) CompleteUpload(ctx context.Context, imageID, filename string, payload []byte) error {
	key, err := sanitizeFilename(filename)
	if err != nil {
		return err
	}

	// Publish first: the client is told "ok" once metadata is consistent,
	// while the payload write and conversion complete in the background.
	if err := s.images.Publish(ctx, imageID, nameWithoutExt(key)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("publish image: %w", err)
	}

	s.queue.Enqueue(key, payload)
	return nil
}

func (s *imageService) DirectUpload(ctx context.Context, accountID, filename string, payload []byte) (string, error) {
	key, err := sanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	ok, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("check account: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}

	// The name is written only at the publish step, same as the two-step
	// flow, so a crash here never leaves a named draft behind.
	img := &model.Image{
		ImageID:    uuid.New().String(),
		Name:       nil,
		UploadedAt: time.Now().UTC(),
		Draft:      true,
		AccountID:  accountID,
	}
	if err := s.images.Create(ctx, img); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("create image record: %w", err)
	}

	if err := s.images.Publish(ctx, img.ImageID, nameWithoutExt(key)); err != nil {
		return "", fmt.Errorf("publish image: %w", err)
	}

	s.queue.Enqueue(key, payload)
	return img.ImageID, nil
}

func (s *imageService) Get(ctx context.Context, accountID, imageID string) ([]byte, error) {
	img, err := s.images.FindPublished(ctx, imageID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find image: %w", err)
	}
	if img.Name == nil {
		return nil, ErrNotFound
	}

	// Name is stored extension-stripped, so the artifact key is rebuilt from
	// it directly; OutputKey would strip a further ".photo"-style segment.
	rc, _, err := s.store.Get(ctx, convert.ArtifactKey(*img.Name))
	if err != nil {
		// Conversion may have failed or not run yet; either way the artifact
		// is absent and the caller sees a plain miss.
		return nil, ErrNotFound
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// sanitizeFilename reduces a client-supplied filename to a plain base name,
// closing directory traversal through storage keys.
func sanitizeFilename(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", ErrFilenameRequired
	}
	return name, nil
}

// nameWithoutExt strips the final extension: "cat.png" -> "cat".
func nameWithoutExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
