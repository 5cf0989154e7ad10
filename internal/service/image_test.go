package service

import (
	"context"
	"errors"
	"testing"

	"imgapi/internal/model"
	"imgapi/internal/repository"
	repoMocks "imgapi/internal/repository/mocks"
	storeMocks "imgapi/internal/storage/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeQueue records enqueued jobs; the real pipeline is exercised in its own
// package tests.
type fakeQueue struct {
	keys     []string
	payloads [][]byte
}

func (q *fakeQueue) Enqueue(key string, payload []byte) {
	q.keys = append(q.keys, key)
	q.payloads = append(q.payloads, payload)
}

func TestImageService_RequestUploadSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		svc := NewImageService(mImages, mAccounts, nil, &fakeQueue{}, "http://img.test")

		mAccounts.On("Exists", ctx, "acct1").Return(true, nil)
		mImages.On("Create", ctx, mock.MatchedBy(func(img *model.Image) bool {
			return img.Draft && img.Name == nil && img.AccountID == "acct1" &&
				!img.RequireSignedURLs && img.ImageID != ""
		})).Return(nil)

		slot, err := svc.RequestUploadSlot(ctx, "acct1")

		require.NoError(t, err)
		_, parseErr := uuid.Parse(slot.ImageID)
		assert.NoError(t, parseErr)
		assert.Equal(t, "http://img.test/cloudflare/"+slot.ImageID, slot.UploadURL)
		mImages.AssertExpectations(t)
		mAccounts.AssertExpectations(t)
	})

	t.Run("unknown account", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		svc := NewImageService(mImages, mAccounts, nil, &fakeQueue{}, "http://img.test")

		mAccounts.On("Exists", ctx, "ghost").Return(false, nil)

		slot, err := svc.RequestUploadSlot(ctx, "ghost")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, slot)
		mImages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		svc := NewImageService(mImages, mAccounts, nil, &fakeQueue{}, "http://img.test")

		mAccounts.On("Exists", ctx, "acct1").Return(true, nil)
		mImages.On("Create", ctx, mock.Anything).Return(errors.New("db fail"))

		_, err := svc.RequestUploadSlot(ctx, "acct1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestImageService_CompleteUpload(t *testing.T) {
	ctx := context.Background()
	payload := []byte("payload")

	t.Run("publishes then enqueues", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		queue := &fakeQueue{}
		svc := NewImageService(mImages, nil, nil, queue, "http://img.test")

		mImages.On("Publish", ctx, "img1", "cat").Return(nil)

		err := svc.CompleteUpload(ctx, "img1", "cat.png", payload)

		require.NoError(t, err)
		require.Len(t, queue.keys, 1)
		assert.Equal(t, "cat.png", queue.keys[0])
		assert.Equal(t, payload, queue.payloads[0])
		mImages.AssertExpectations(t)
	})

	t.Run("no draft record", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		queue := &fakeQueue{}
		svc := NewImageService(mImages, nil, nil, queue, "http://img.test")

		mImages.On("Publish", ctx, "img1", "cat").Return(repository.ErrNotFound)

		err := svc.CompleteUpload(ctx, "img1", "cat.png", payload)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, queue.keys, "nothing reaches the pipeline on a miss")
	})

	t.Run("traversal filenames are reduced to base names", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		queue := &fakeQueue{}
		svc := NewImageService(mImages, nil, nil, queue, "http://img.test")

		mImages.On("Publish", ctx, "img1", "passwd").Return(nil)

		err := svc.CompleteUpload(ctx, "img1", "../../etc/passwd.png", payload)

		require.NoError(t, err)
		assert.Equal(t, []string{"passwd.png"}, queue.keys)
	})

	t.Run("empty filename", func(t *testing.T) {
		svc := NewImageService(nil, nil, nil, &fakeQueue{}, "http://img.test")

		err := svc.CompleteUpload(ctx, "img1", "   ", payload)
		assert.ErrorIs(t, err, ErrFilenameRequired)
	})
}

func TestImageService_DirectUpload(t *testing.T) {
	ctx := context.Background()
	payload := []byte("payload")

	t.Run("creates draft then publishes", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		queue := &fakeQueue{}
		svc := NewImageService(mImages, mAccounts, nil, queue, "http://img.test")

		mAccounts.On("Exists", ctx, "acct1").Return(true, nil)
		var createdID string
		mImages.On("Create", ctx, mock.MatchedBy(func(img *model.Image) bool {
			createdID = img.ImageID
			// The draft row carries no name even in the single-step flow.
			return img.Draft && img.Name == nil && img.AccountID == "acct1"
		})).Return(nil)
		mImages.On("Publish", ctx, mock.AnythingOfType("string"), "cat").Return(nil)

		id, err := svc.DirectUpload(ctx, "acct1", "cat.png", payload)

		require.NoError(t, err)
		assert.Equal(t, createdID, id)
		assert.Equal(t, []string{"cat.png"}, queue.keys)
		mImages.AssertExpectations(t)
	})

	t.Run("unknown account", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		queue := &fakeQueue{}
		svc := NewImageService(mImages, mAccounts, nil, queue, "http://img.test")

		mAccounts.On("Exists", ctx, "ghost").Return(false, nil)

		_, err := svc.DirectUpload(ctx, "ghost", "cat.png", payload)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, queue.keys)
		mImages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid filename checked before record creation", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mAccounts := new(repoMocks.MockAccountRepository)
		svc := NewImageService(mImages, mAccounts, nil, &fakeQueue{}, "http://img.test")

		_, err := svc.DirectUpload(ctx, "acct1", "", payload)

		assert.ErrorIs(t, err, ErrFilenameRequired)
		mImages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestImageService_Get(t *testing.T) {
	ctx := context.Background()

	published := func(name string) *model.Image {
		return &model.Image{ImageID: "img1", Name: &name, AccountID: "acct1"}
	}

	t.Run("happy path", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mStore := new(storeMocks.MockStorage)
		svc := NewImageService(mImages, nil, mStore, &fakeQueue{}, "http://img.test")

		mImages.On("FindPublished", ctx, "img1", "acct1").Return(published("cat"), nil)
		mStore.On("Get", ctx, "cat.webp").
			Return(readCloser("webp bytes"), storageInfo("cat.webp"), nil)

		data, err := svc.Get(ctx, "acct1", "img1")

		require.NoError(t, err)
		assert.Equal(t, []byte("webp bytes"), data)
		mStore.AssertExpectations(t)
	})

	t.Run("multi-dot names keep their inner dots in the artifact key", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mStore := new(storeMocks.MockStorage)
		svc := NewImageService(mImages, nil, mStore, &fakeQueue{}, "http://img.test")

		// "my.photo.png" publishes as "my.photo"; the artifact sits at
		// "my.photo.webp", not "my.webp".
		mImages.On("FindPublished", ctx, "img1", "acct1").Return(published("my.photo"), nil)
		mStore.On("Get", ctx, "my.photo.webp").
			Return(readCloser("webp bytes"), storageInfo("my.photo.webp"), nil)

		data, err := svc.Get(ctx, "acct1", "img1")

		require.NoError(t, err)
		assert.Equal(t, []byte("webp bytes"), data)
		mStore.AssertExpectations(t)
	})

	t.Run("record miss maps to ErrNotFound", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		svc := NewImageService(mImages, nil, nil, &fakeQueue{}, "http://img.test")

		mImages.On("FindPublished", ctx, "img1", "acct2").Return(nil, repository.ErrNotFound)

		_, err := svc.Get(ctx, "acct2", "img1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing artifact maps to ErrNotFound", func(t *testing.T) {
		mImages := new(repoMocks.MockImageRepository)
		mStore := new(storeMocks.MockStorage)
		svc := NewImageService(mImages, nil, mStore, &fakeQueue{}, "http://img.test")

		mImages.On("FindPublished", ctx, "img1", "acct1").Return(published("cat"), nil)
		mStore.On("Get", ctx, "cat.webp").
			Return(nil, storageInfo(""), errors.New("no such file"))

		_, err := svc.Get(ctx, "acct1", "img1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"cat.png", "cat.png", false},
		{" cat.png ", "cat.png", false},
		{"dir/cat.png", "cat.png", false},
		{"../../etc/passwd", "passwd", false},
		{"", "", true},
		{"   ", "", true},
		{".", "", true},
		{"..", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		got, err := sanitizeFilename(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestNameWithoutExt(t *testing.T) {
	assert.Equal(t, "cat", nameWithoutExt("cat.png"))
	assert.Equal(t, "cat", nameWithoutExt("cat"))
	assert.Equal(t, "archive.tar", nameWithoutExt("archive.tar.gz"))
}
