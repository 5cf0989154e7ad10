package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"imgapi/internal/model"
	"imgapi/internal/repository"
)

// Store is an in-memory implementation of the repository contracts, used when
// DB_DRIVER=memory (the emulator's non-persistent mode). A single RWMutex
// serializes writes, which is all the single-record consistency the lifecycle
// needs. Records are stored and returned as copies so callers cannot mutate
// shared state.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
	images   map[string]model.Image
	videos   map[string]model.Video
}

var (
	_ repository.ImageRepository   = (*Store)(nil)
	_ repository.AccountRepository = (*Store)(nil)
	_ repository.VideoRepository   = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[string]model.Account),
		images:   make(map[string]model.Image),
		videos:   make(map[string]model.Video),
	}
}

// SeedAccount inserts an account if absent. Bootstrap-only; accounts are
// otherwise immutable.
func (s *Store) SeedAccount(ctx context.Context, acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.AccountID]; !ok {
		s.accounts[acct.AccountID] = acct
	}
	return nil
}

// SeedVideo inserts a video record if absent.
func (s *Store) SeedVideo(ctx context.Context, v model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[v.VideoID]; !ok {
		s.videos[v.VideoID] = v
	}
	return nil
}

// SeedVideosFromDir registers every regular file in dir as a video, keyed by
// its extension-stripped filename. This is the only way video records come
// into existence in memory mode, since the API has no video-upload surface.
// A missing directory seeds nothing.
func (s *Store) SeedVideosFromDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if id == "" {
			continue
		}
		fileName := name
		if err := s.SeedVideo(ctx, model.Video{VideoID: id, Name: &fileName}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[accountID]
	return ok, nil
}

func (s *Store) Create(ctx context.Context, img *model.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same referential integrity the SQL schema declares.
	if _, ok := s.accounts[img.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}

	imgCopy := *img
	if img.Name != nil {
		name := *img.Name
		imgCopy.Name = &name
	}
	s.images[img.ImageID] = imgCopy
	return nil
}

func (s *Store) Publish(ctx context.Context, imageID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[imageID]
	if !ok || !img.Draft {
		return repository.ErrNotFound
	}

	img.Draft = false
	img.Name = &name
	s.images[imageID] = img
	return nil
}

func (s *Store) FindPublished(ctx context.Context, imageID, accountID string) (*model.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[imageID]
	if !ok || img.Draft || img.AccountID != accountID {
		return nil, repository.ErrNotFound
	}

	imgCopy := img
	if img.Name != nil {
		name := *img.Name
		imgCopy.Name = &name
	}
	return &imgCopy, nil
}

func (s *Store) FindByID(ctx context.Context, videoID string) (*model.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	vCopy := v
	if v.Name != nil {
		name := *v.Name
		vCopy.Name = &name
	}
	return &vCopy, nil
}
