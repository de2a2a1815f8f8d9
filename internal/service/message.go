package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/media"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// MessageService handles user-to-admin messages
type MessageService struct {
	client   Requester
	uploader media.Uploader
	logger   *zap.Logger
}

// NewMessageService creates a new MessageService. uploader may be nil.
func NewMessageService(client Requester, uploader media.Uploader, log *zap.Logger) *MessageService {
	return &MessageService{
		client:   client,
		uploader: uploader,
		logger:   logger.OrNop(log).Named("messages"),
	}
}

// SendMessage validates and sends a message, uploading an attached image
// first when an uploader is configured.
func (s *MessageService) SendMessage(ctx context.Context, req *types.MessageRequest) (*models.Message, error) {
	if req == nil {
		return nil, apiclient.ValidationFailed(fmt.Errorf("message is required"))
	}
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}

	var body any = req
	if req.Image != nil {
		if _, err := media.Check(req.Image); err != nil {
			return nil, apiclient.ValidationFailed(types.FieldErrors{"image": err.Error()})
		}
		if s.uploader != nil {
			url, err := s.uploader.Upload(ctx, media.FolderMessages, req.Image)
			if err != nil {
				return nil, fmt.Errorf("failed to upload message image: %w", err)
			}
			withURL := *req
			withURL.ImageURL = url
			withURL.Image = nil
			body = &withURL
		} else {
			body = &apiclient.Multipart{
				Fields: map[string]string{
					"type":    string(req.Type),
					"title":   req.Title,
					"content": req.Content,
				},
				Files: []apiclient.File{{
					Field:       "image",
					Name:        req.Image.Name,
					ContentType: req.Image.ContentType,
					Data:        req.Image.Data,
				}},
			}
		}
	}

	resp, err := s.client.Send(ctx, http.MethodPost, "/messages", body)
	if err != nil {
		return nil, err
	}
	msg, err := apiclient.DecodeItem[models.Message](resp, "message", "data")
	if err != nil {
		return nil, err
	}
	s.logger.Debug("message sent", zap.String("id", msg.ID), zap.String("type", string(msg.Type)))
	return msg, nil
}

// GetUserMessages lists the signed-in user's messages.
func (s *MessageService) GetUserMessages(ctx context.Context) ([]models.Message, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/messages/my-messages", nil)
	if err != nil {
		return nil, err
	}
	list, err := apiclient.DecodeList[models.Message](resp, "messages")
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetAllMessages lists every message (admin).
func (s *MessageService) GetAllMessages(ctx context.Context, params types.ListParams) (types.List[models.Message], error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/messages", nil, apiclient.WithQuery(params.Query()))
	if err != nil {
		return types.List[models.Message]{}, err
	}
	return apiclient.DecodeList[models.Message](resp, "messages")
}

// MessagesStats calls the dedicated stats endpoint only.
func (s *MessageService) MessagesStats(ctx context.Context) (types.MessageStats, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/messages/stats", nil)
	if err != nil {
		return types.MessageStats{}, err
	}
	var out types.MessageStats
	if err := resp.Decode(&out); err != nil {
		return types.MessageStats{}, err
	}
	return out, nil
}

// GetMessagesStats prefers the stats endpoint and falls back to counting
// statuses in the message list.
func (s *MessageService) GetMessagesStats(ctx context.Context) (types.MessageStats, error) {
	stats, _, err := FirstSuccess(ctx, s.logger, "messages_stats",
		Source[types.MessageStats]{Name: "endpoint", Fetch: s.MessagesStats},
		Source[types.MessageStats]{Name: "list", Fetch: func(ctx context.Context) (types.MessageStats, error) {
			list, err := s.GetAllMessages(ctx, types.ListParams{Limit: FallbackLimit})
			if err != nil {
				return types.MessageStats{}, err
			}
			return ComputeMessageStats(list.Items), nil
		}},
	)
	return stats, err
}

// ComputeMessageStats counts messages by status.
func ComputeMessageStats(msgs []models.Message) types.MessageStats {
	stats := types.MessageStats{Total: len(msgs)}
	for i := range msgs {
		switch msgs[i].Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusReplied:
			stats.Replied++
		case models.StatusRead:
			stats.Read++
		}
	}
	return stats
}

// UpdateMessageStatus sets a message's status (admin).
func (s *MessageService) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error) {
	req := types.MessageStatusRequest{Status: status}
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	resp, err := s.client.Send(ctx, http.MethodPut, "/messages/"+id+"/status", req)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.Message](resp, "message", "data")
}

// ReplyToMessage answers a message (admin).
func (s *MessageService) ReplyToMessage(ctx context.Context, id, content string) (*models.Message, error) {
	req := types.ReplyRequest{Content: content}
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	resp, err := s.client.Send(ctx, http.MethodPost, "/messages/"+id+"/reply", req)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.Message](resp, "message", "data")
}

// DeleteMessage removes a message (admin).
func (s *MessageService) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.client.Send(ctx, http.MethodDelete, "/messages/"+id, nil)
	return err
}
