package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/state"
)

type fixedState state.AuthState

func (f fixedState) State() state.AuthState { return state.AuthState(f) }

func guarded(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", guard, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})
	return r
}

func get(r http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	return rr
}

func TestRequireAuth(t *testing.T) {
	signedOut := fixedState{Status: state.StatusUnauthenticated}
	assert.Equal(t, http.StatusUnauthorized, get(guarded(RequireAuth(signedOut))).Code)

	loading := fixedState{Status: state.StatusLoading}
	assert.Equal(t, http.StatusUnauthorized, get(guarded(RequireAuth(loading))).Code)

	user := fixedState{Status: state.StatusAuthenticated, User: &models.User{ID: "u1", Role: models.RoleUser}}
	rr := get(guarded(RequireAuth(user)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", rr.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	user := fixedState{Status: state.StatusAuthenticated, User: &models.User{ID: "u1", Role: models.RoleUser}}
	assert.Equal(t, http.StatusForbidden, get(guarded(RequireAdmin(user))).Code)

	admin := fixedState{Status: state.StatusAuthenticated, User: &models.User{ID: "a1", Role: models.RoleAdmin}}
	assert.Equal(t, http.StatusOK, get(guarded(RequireAdmin(admin))).Code)

	signedOut := fixedState{Status: state.StatusUnauthenticated}
	assert.Equal(t, http.StatusUnauthorized, get(guarded(RequireAdmin(signedOut))).Code)
}
