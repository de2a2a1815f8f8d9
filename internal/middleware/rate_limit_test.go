package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/testhelpers"
)

func limited(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		c.Set(ContextUserID, "u1")
		c.Next()
	}, rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func post(r http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	return rr
}

func TestRateLimiterWithoutRedisAllowsAll(t *testing.T) {
	r := limited(NewRateLimiter(nil, RateLimitConfig{Window: time.Minute, Limit: 1}, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, post(r).Code)
	}

	var none *RateLimiter
	assert.Equal(t, http.StatusNoContent, post(limited(none)).Code)
}

func TestRateLimiterWithRedis(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "rate_limit:test"}, nil)
	r := limited(rl)

	first := post(r)
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, post(r).Code)

	blocked := post(r)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	remaining, reset, err := rl.Remaining(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.After(time.Now()))
}
