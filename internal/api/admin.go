package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/dashboard"
	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/types"
)

// AdminHandler serves the admin dashboard and the moderation routes.
type AdminHandler struct {
	engine   *dashboard.Engine
	poller   *dashboard.Poller
	users    service.IAuthService
	messages service.IMessageService
	auth     *state.AuthProvider
}

// NewAdminHandler creates a new AdminHandler. poller may be nil.
func NewAdminHandler(engine *dashboard.Engine, poller *dashboard.Poller, users service.IAuthService, messages service.IMessageService, auth *state.AuthProvider) *AdminHandler {
	return &AdminHandler{engine: engine, poller: poller, users: users, messages: messages, auth: auth}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", middleware.RequireAdmin(h.auth))
	{
		admin.GET("/dashboard", h.GetDashboard)
		admin.POST("/dashboard/refresh", h.RefreshDashboard)

		admin.GET("/messages", h.ListMessages)
		admin.PUT("/messages/:id/status", h.UpdateMessageStatus)
		admin.POST("/messages/:id/reply", h.ReplyToMessage)
		admin.DELETE("/messages/:id", h.DeleteMessage)

		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/role", h.UpdateUserRole)
		admin.DELETE("/users/:id", h.DeleteUser)
	}
}

// GetDashboard returns the last snapshot, computing one if none exists yet.
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	if snap := h.engine.Last(); snap != nil {
		c.JSON(http.StatusOK, gin.H{"dashboard": snap, "degraded": false})
		return
	}
	h.RefreshDashboard(c)
}

// RefreshDashboard recomputes the snapshot. When every source fails the
// previous snapshot is served as degraded.
func (h *AdminHandler) RefreshDashboard(c *gin.Context) {
	snap, err := h.engine.Refresh(c.Request.Context())
	if err != nil && (snap == nil || !errors.Is(err, dashboard.ErrAllSourcesFailed)) {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": snap, "degraded": err != nil})
}

func (h *AdminHandler) changed() {
	if h.poller != nil {
		h.poller.Trigger()
	}
}

// ListMessages pages all messages.
func (h *AdminHandler) ListMessages(c *gin.Context) {
	var params types.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.messages.GetAllMessages(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list.Items, "total": list.Total})
}

// UpdateMessageStatus marks a message pending, read or replied.
func (h *AdminHandler) UpdateMessageStatus(c *gin.Context) {
	var req types.MessageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.messages.UpdateMessageStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ReplyToMessage answers a message.
func (h *AdminHandler) ReplyToMessage(c *gin.Context) {
	var req types.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.messages.ReplyToMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage removes a message.
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	if err := h.messages.DeleteMessage(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.changed()
	c.Status(http.StatusNoContent)
}

// ListUsers pages all users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var params types.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.users.GetAllUsers(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list.Items, "total": list.Total})
}

// UpdateUserRole promotes or demotes a user. Changing the caller's own
// role refreshes the session user.
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req types.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.UpdateUserRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	if user != nil && user.ID == viewerID(c) {
		h.auth.UpdateUser(c.Request.Context(), user)
	}
	h.changed()
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser removes a user account.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == viewerID(c) {
		badRequest(c, errors.New("cannot delete your own account"))
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.changed()
	c.Status(http.StatusNoContent)
}
