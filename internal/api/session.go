package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/types"
)

// SessionHandler signs the client in and out and edits the profile.
type SessionHandler struct {
	auth  *state.AuthProvider
	users service.IAuthService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(auth *state.AuthProvider, users service.IAuthService) *SessionHandler {
	return &SessionHandler{auth: auth, users: users}
}

// RegisterRoutes registers the session routes
func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	session := router.Group("/session")
	{
		session.GET("", h.GetSession)
		session.POST("/login", h.Login)
		session.POST("/register", h.Register)
		session.POST("/logout", h.Logout)

		authed := session.Group("", middleware.RequireAuth(h.auth))
		authed.GET("/profile", h.GetProfile)
		authed.PUT("/profile", h.UpdateProfile)
		authed.GET("/stats", h.GetStats)
	}
}

// GetSession returns the auth state.
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.State())
}

// Login signs in with email and password.
func (h *SessionHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c, http.StatusOK, h.auth.Login(c.Request.Context(), req))
}

// Register creates an account and signs it in.
func (h *SessionHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c, http.StatusCreated, h.auth.Register(c.Request.Context(), req))
}

func (h *SessionHandler) respond(c *gin.Context, ok int, res state.AuthResult) {
	if res.Success {
		c.JSON(ok, res)
		return
	}
	status := http.StatusBadRequest
	switch res.Kind {
	case apiclient.KindUnauthorized:
		status = http.StatusUnauthorized
	case apiclient.KindNetwork, apiclient.KindServer:
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

// Logout signs out locally.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.auth.Logout()
	c.Status(http.StatusNoContent)
}

// GetProfile returns the full profile of the signed-in user.
func (h *SessionHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetUserProfile(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile saves profile edits.
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetStats returns the signed-in user's activity counters.
func (h *SessionHandler) GetStats(c *gin.Context) {
	stats, err := h.users.GetUserStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
