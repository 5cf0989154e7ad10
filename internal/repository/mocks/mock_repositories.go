package mocks

import (
	"context"

	"imgapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, img *model.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *MockImageRepository) Publish(ctx context.Context, imageID, name string) error {
	args := m.Called(ctx, imageID, name)
	return args.Error(0)
}

func (m *MockImageRepository) FindPublished(ctx context.Context, imageID, accountID string) (*model.Image, error) {
	args := m.Called(ctx, imageID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Exists(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

type MockVideoRepository struct {
	mock.Mock
}

func (m *MockVideoRepository) FindByID(ctx context.Context, videoID string) (*model.Video, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Video), args.Error(1)
}
