package state

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/types"
)

// MessageState is a snapshot of the signed-in user's messages.
type MessageState struct {
	Messages []models.Message `json:"messages"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
}

// MessageProvider holds the messages the signed-in user sent to the admins.
type MessageProvider struct {
	messages service.IMessageService
	notes    notify.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	items   []models.Message
	loading bool
	lastErr string
	fetch   string
	hub     Hub[MessageState]
}

// NewMessageProvider creates an empty provider. notes may be nil.
func NewMessageProvider(messages service.IMessageService, notes notify.Notifier, log *zap.Logger) *MessageProvider {
	if notes == nil {
		notes = notify.Discard{}
	}
	return &MessageProvider{
		messages: messages,
		notes:    notes,
		logger:   logger.OrNop(log).Named("message_state"),
	}
}

func (p *MessageProvider) snapshot() MessageState {
	return MessageState{Messages: slices.Clone(p.items), Loading: p.loading, Error: p.lastErr}
}

// FetchUserMessages replaces the list with the server's copy.
func (p *MessageProvider) FetchUserMessages(ctx context.Context) ([]models.Message, error) {
	token := uuid.NewString()
	p.mu.Lock()
	p.fetch = token
	p.loading = true
	p.lastErr = ""
	p.hub.Publish(p.snapshot())
	p.mu.Unlock()

	msgs, err := p.messages.GetUserMessages(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetch != token {
		return nil, ErrSuperseded
	}
	p.fetch = ""
	p.loading = false
	if err != nil {
		if !apiclient.IsCanceled(err) {
			p.lastErr = "Failed to fetch messages"
		}
		p.logger.Info("failed to fetch messages", zap.Error(err))
		p.hub.Publish(p.snapshot())
		return nil, err
	}
	p.items = msgs
	p.hub.Publish(p.snapshot())
	return slices.Clone(msgs), nil
}

// SendNewMessage sends req and prepends the stored message.
func (p *MessageProvider) SendNewMessage(ctx context.Context, req *types.MessageRequest) (models.Message, error) {
	msg, err := p.messages.SendMessage(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastErr = messageOr(err, "Failed to send message")
		p.notes.Push(notify.LevelError, p.lastErr)
		p.hub.Publish(p.snapshot())
		return models.Message{}, err
	}
	p.items = append([]models.Message{*msg}, p.items...)
	p.notes.Push(notify.LevelSuccess, "Message sent successfully!")
	p.hub.Publish(p.snapshot())
	return *msg, nil
}

// Detach invalidates any fetch in flight.
func (p *MessageProvider) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetch != "" {
		p.fetch = ""
		p.loading = false
		p.hub.Publish(p.snapshot())
	}
}

// Reset forgets the list, e.g. on sign-out.
func (p *MessageProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.lastErr = ""
	p.fetch = ""
	p.loading = false
	p.hub.Publish(p.snapshot())
}

// State returns the current snapshot.
func (p *MessageProvider) State() MessageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Subscribe streams list snapshots.
func (p *MessageProvider) Subscribe() (<-chan MessageState, func()) { return p.hub.Subscribe() }
