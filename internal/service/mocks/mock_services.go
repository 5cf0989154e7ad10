package mocks

import (
	"context"

	"imgapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) RequestUploadSlot(ctx context.Context, accountID string) (*service.UploadSlot, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadSlot), args.Error(1)
}

func (m *MockImageService) CompleteUpload(ctx context.Context, imageID, filename string, payload []byte) error {
	args := m.Called(ctx, imageID, filename, payload)
	return args.Error(0)
}

func (m *MockImageService) DirectUpload(ctx context.Context, accountID, filename string, payload []byte) (string, error) {
	args := m.Called(ctx, accountID, filename, payload)
	return args.String(0), args.Error(1)
}

func (m *MockImageService) Get(ctx context.Context, accountID, imageID string) ([]byte, error) {
	args := m.Called(ctx, accountID, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockVideoService struct {
	mock.Mock
}

func (m *MockVideoService) Get(ctx context.Context, videoID string) ([]byte, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
