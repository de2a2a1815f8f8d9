package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/mocks"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/types"
)

func TestSendNewMessagePrepends(t *testing.T) {
	svc := &mocks.MockMessageService{}
	center := notify.NewCenter(0)
	p := NewMessageProvider(svc, center, nil)
	ctx := context.Background()

	svc.On("GetUserMessages", mock.Anything).Return([]models.Message{{ID: "m1"}}, nil).Once()
	_, err := p.FetchUserMessages(ctx)
	require.NoError(t, err)

	req := &types.MessageRequest{Type: models.MessageQuestion, Title: "Hi", Content: "Salt?"}
	svc.On("SendMessage", mock.Anything, req).Return(&models.Message{ID: "m2", Title: "Hi"}, nil).Once()
	_, err = p.SendNewMessage(ctx, req)
	require.NoError(t, err)

	st := p.State()
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "m2", st.Messages[0].ID)
	assert.Equal(t, "Message sent successfully!", lastNote(t, center).Message)
	svc.AssertExpectations(t)
}

func TestMessageFailures(t *testing.T) {
	svc := &mocks.MockMessageService{}
	center := notify.NewCenter(0)
	p := NewMessageProvider(svc, center, nil)
	ctx := context.Background()

	svc.On("GetUserMessages", mock.Anything).Return(nil, errors.New("down")).Once()
	_, err := p.FetchUserMessages(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch messages", p.State().Error)

	svc.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()
	_, err = p.SendNewMessage(ctx, &types.MessageRequest{})
	require.Error(t, err)
	assert.Equal(t, "Failed to send message", lastNote(t, center).Message)
	assert.Empty(t, p.State().Messages)
}
