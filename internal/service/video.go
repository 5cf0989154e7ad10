package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"imgapi/internal/repository"
	"imgapi/internal/storage"
)

// VideoService serves the experimental video stub: metadata lookup by id,
// bytes straight from the videos storage root.
type VideoService interface {
	Get(ctx context.Context, videoID string) ([]byte, error)
}

type videoService struct {
	videos repository.VideoRepository
	store  storage.Storage
}

// NewVideoService constructs a VideoService backed by the given metadata
// repository and blob store (rooted at the videos directory).
func NewVideoService(videos repository.VideoRepository, store storage.Storage) VideoService {
	return &videoService{videos: videos, store: store}
}

func (s *videoService) Get(ctx context.Context, videoID string) ([]byte, error) {
	v, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find video: %w", err)
	}
	if v.Name == nil {
		return nil, ErrNotFound
	}

	rc, _, err := s.store.Get(ctx, *v.Name)
	if err != nil {
		return nil, ErrNotFound
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	return data, nil
}
