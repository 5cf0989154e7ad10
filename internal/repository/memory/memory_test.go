package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"imgapi/internal/model"
	"imgapi/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.SeedAccount(context.Background(), model.Account{
		AccountID:   "acct1",
		AccountHash: "hash1",
	}))
	return s
}

func draftImage(id string) *model.Image {
	return &model.Image{
		ImageID:    id,
		UploadedAt: time.Now().UTC(),
		Draft:      true,
		AccountID:  "acct1",
	}
}

func TestStore_CreateEnforcesAccountReference(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	img := draftImage("img1")
	img.AccountID = "ghost"

	err := s.Create(ctx, img)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	img.AccountID = "acct1"
	assert.NoError(t, s.Create(ctx, img))
}

func TestStore_PublishTransitionsExactlyOnce(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, draftImage("img1")))

	assert.NoError(t, s.Publish(ctx, "img1", "cat"))

	// A second publish sees no draft row and must fail.
	assert.ErrorIs(t, s.Publish(ctx, "img1", "cat"), repository.ErrNotFound)

	// Unknown id behaves the same.
	assert.ErrorIs(t, s.Publish(ctx, "nope", "cat"), repository.ErrNotFound)
}

func TestStore_FindPublishedScoping(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, draftImage("img1")))

	// Draft records are invisible, even to the owning account.
	_, err := s.FindPublished(ctx, "img1", "acct1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.Publish(ctx, "img1", "cat"))

	img, err := s.FindPublished(ctx, "img1", "acct1")
	require.NoError(t, err)
	assert.False(t, img.Draft)
	require.NotNil(t, img.Name)
	assert.Equal(t, "cat", *img.Name)

	// Foreign accounts see nothing.
	_, err = s.FindPublished(ctx, "img1", "acct2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, draftImage("img1")))
	require.NoError(t, s.Publish(ctx, "img1", "cat"))

	img, err := s.FindPublished(ctx, "img1", "acct1")
	require.NoError(t, err)

	*img.Name = "mutated"
	img.Draft = true

	again, err := s.FindPublished(ctx, "img1", "acct1")
	require.NoError(t, err)
	assert.Equal(t, "cat", *again.Name)
}

func TestStore_SeedVideosFromDir(t *testing.T) {
	s := New()
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("mp4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trailer.mp4"), []byte("mp4"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	require.NoError(t, s.SeedVideosFromDir(ctx, dir))

	v, err := s.FindByID(ctx, "clip")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", *v.Name)

	v, err = s.FindByID(ctx, "trailer")
	require.NoError(t, err)
	assert.Equal(t, "trailer.mp4", *v.Name)

	// Subdirectories are not videos.
	_, err = s.FindByID(ctx, "nested")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// A missing directory seeds nothing and is not an error.
	assert.NoError(t, s.SeedVideosFromDir(ctx, filepath.Join(dir, "absent")))
}

func TestStore_Videos(t *testing.T) {
	s := New()
	ctx := context.Background()

	name := "clip.mp4"
	require.NoError(t, s.SeedVideo(ctx, model.Video{VideoID: "vid1", Name: &name}))

	v, err := s.FindByID(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", *v.Name)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
