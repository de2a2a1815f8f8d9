package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/types"
)

// MessageHandler lets the signed-in user write to the admins.
type MessageHandler struct {
	messages *state.MessageProvider
	auth     *state.AuthProvider
	limiter  *middleware.RateLimiter
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *state.MessageProvider, auth *state.AuthProvider, limiter *middleware.RateLimiter) *MessageHandler {
	return &MessageHandler{messages: messages, auth: auth, limiter: limiter}
}

// RegisterRoutes registers the message routes
func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	messages := router.Group("/messages", middleware.RequireAuth(h.auth))
	{
		messages.GET("", h.GetMine)
		messages.POST("", h.limiter.RateLimitMiddleware(), h.Send)
	}
}

// GetMine reloads and returns the user's messages.
func (h *MessageHandler) GetMine(c *gin.Context) {
	msgs, err := h.messages.FetchUserMessages(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Send accepts JSON or a multipart form with an optional image.
func (h *MessageHandler) Send(c *gin.Context) {
	req, err := bindMessage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.messages.SendNewMessage(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func bindMessage(c *gin.Context) (*types.MessageRequest, error) {
	if !isMultipart(c) {
		var req types.MessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	req := &types.MessageRequest{
		Type:     models.MessageType(c.PostForm("type")),
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		ImageURL: c.PostForm("image"),
	}
	file, err := formFile(c, "image")
	if err != nil {
		return nil, err
	}
	req.Image = file
	return req, nil
}
