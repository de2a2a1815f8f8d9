package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/notify"
)

// NotificationHandler exposes the toast queue.
type NotificationHandler struct {
	center *notify.Center
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(center *notify.Center) *NotificationHandler {
	return &NotificationHandler{center: center}
}

// RegisterRoutes registers the notification routes
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.DELETE("/:id", h.Dismiss)
	}
}

// List returns pending notifications, oldest first.
func (h *NotificationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.center.List()})
}

// Dismiss removes one notification.
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	if !h.center.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: "notification not found", Kind: "not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}
