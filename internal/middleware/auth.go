package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/state"
)

// Context keys set by RequireAuth.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// SessionState exposes the signed-in state of the client session.
type SessionState interface {
	State() state.AuthState
}

// RequireAuth rejects requests while no user is signed in.
func RequireAuth(auth SessionState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := auth.State()
		if st.Status != state.StatusAuthenticated || st.User == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated", Kind: "unauthorized"})
			return
		}
		c.Set(ContextUserID, st.User.ID)
		c.Set(ContextUser, st.User)
		c.Next()
	}
}

// RequireAdmin rejects requests unless the signed-in user is an admin.
// It implies RequireAuth.
func RequireAdmin(auth SessionState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := auth.State()
		if st.Status != state.StatusAuthenticated || st.User == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated", Kind: "unauthorized"})
			return
		}
		if !st.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin access required", Kind: "forbidden"})
			return
		}
		c.Set(ContextUserID, st.User.ID)
		c.Set(ContextUser, st.User)
		c.Next()
	}
}
