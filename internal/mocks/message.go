package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// MockMessageService is a mock implementation of the message service
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendMessage(ctx context.Context, req *types.MessageRequest) (*models.Message, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) GetUserMessages(ctx context.Context) ([]models.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageService) GetAllMessages(ctx context.Context, params types.ListParams) (types.List[models.Message], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.List[models.Message]), args.Error(1)
}

func (m *MockMessageService) MessagesStats(ctx context.Context) (types.MessageStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.MessageStats), args.Error(1)
}

func (m *MockMessageService) GetMessagesStats(ctx context.Context) (types.MessageStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.MessageStats), args.Error(1)
}

func (m *MockMessageService) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) ReplyToMessage(ctx context.Context, id, content string) (*models.Message, error) {
	args := m.Called(ctx, id, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) DeleteMessage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
