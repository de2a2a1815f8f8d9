package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

type memCreds struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memCreds) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memCreds) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

func newTestServer(t *testing.T, register func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSendAttachesBearerToken(t *testing.T) {
	var got string
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/auth/me", func(c *gin.Context) {
			got = c.GetHeader("Authorization")
			c.JSON(http.StatusOK, gin.H{"user": gin.H{"_id": "u1"}})
		})
	})

	c := New(srv.URL+"/api", &memCreds{token: "abc"})
	resp, err := c.Send(context.Background(), http.MethodGet, "/auth/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)

	var out types.AuthResponse
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "u1", out.User.ID)
}

func TestSendOmitsHeaderWithoutToken(t *testing.T) {
	var got string
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/recipes", func(c *gin.Context) {
			got = c.GetHeader("Authorization")
			c.JSON(http.StatusOK, []gin.H{})
		})
	})

	_, err := New(srv.URL+"/api", &memCreds{}).Send(context.Background(), http.MethodGet, "recipes", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/users/profile", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Token expired"})
		})
	})
	creds := &memCreds{token: "stale"}

	_, err := New(srv.URL+"/api", creds).Send(context.Background(), http.MethodGet, "/users/profile", nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Token expired", UserMessage(err))
	assert.Equal(t, 1, creds.cleared)
	assert.Empty(t, creds.token)
}

func TestUnauthorizedRunsHook(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/recipes", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
		r.POST("/api/recipes/:id/like", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
		})
	})
	client := New(srv.URL+"/api", &memCreds{token: "stale"})
	calls := 0
	client.OnUnauthorized(func() { calls++ })

	_, err := client.Send(context.Background(), http.MethodGet, "recipes", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	_, err = client.Send(context.Background(), http.MethodPost, "recipes/r1/like", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	client.OnUnauthorized(nil)
	_, err = client.Send(context.Background(), http.MethodPost, "recipes/r1/like", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestErrorKinds(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
		r.GET("/api/boom", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database down"})
		})
		r.POST("/api/invalid", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{
				{"path": "email", "msg": "Email is taken"},
				{"param": "password", "message": "Too short"},
			}})
		})
	})
	c := New(srv.URL+"/api", nil)
	ctx := context.Background()

	_, err := c.Send(ctx, http.MethodGet, "/missing", nil)
	assert.True(t, IsNotFound(err))

	_, err = c.Send(ctx, http.MethodGet, "/boom", nil)
	assert.True(t, IsServer(err))
	assert.Equal(t, "database down", UserMessage(err))

	_, err = c.Send(ctx, http.MethodPost, "/invalid", gin.H{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, map[string]string{"email": "Email is taken", "password": "Too short"}, apiErr.Fields)
	assert.Equal(t, "Email is taken", apiErr.Message)
}

func TestNetworkFailureIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).Send(context.Background(), http.MethodGet, "/recipes", nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Zero(t, err.(*APIError).Status)
}

func TestCanceledContext(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/slow", func(c *gin.Context) {
			select {
			case <-c.Request.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := New(srv.URL+"/api", nil).Send(ctx, http.MethodGet, "/slow", nil)
	assert.True(t, IsCanceled(err))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/slow", func(c *gin.Context) {
			select {
			case <-c.Request.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
	})

	_, err := New(srv.URL+"/api", nil, WithTimeout(30*time.Millisecond)).Send(context.Background(), http.MethodGet, "/slow", nil)
	assert.True(t, IsNetwork(err))
}

func TestSendQueryAndMultipart(t *testing.T) {
	var query, title, file string
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/api/recipes", func(c *gin.Context) {
			query = c.Request.URL.RawQuery
			title = c.PostForm("title")
			fh, err := c.FormFile("image")
			if err == nil {
				f, _ := fh.Open()
				raw, _ := io.ReadAll(f)
				file = fh.Filename + ":" + string(raw)
			}
			c.JSON(http.StatusCreated, gin.H{"_id": "r1", "title": title})
		})
	})

	body := &Multipart{Fields: map[string]string{"title": "Soup"}}
	require.NoError(t, body.SetJSON("tags", []string{"warm"}))
	body.Files = append(body.Files, File{Field: "image", Name: "soup.jpg", ContentType: "image/jpeg", Data: []byte("jpg")})

	resp, err := New(srv.URL+"/api", nil).Send(context.Background(), http.MethodPost, "/recipes", body, WithParam("draft", "1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "draft=1", query)
	assert.Equal(t, "Soup", title)
	assert.Equal(t, "soup.jpg:jpg", file)
}

func TestMetricsAreRecorded(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/api/recipes", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
	})
	reg := prometheus.NewRegistry()
	c := New(srv.URL+"/api", nil, WithRegisterer(reg))

	_, err := c.Send(context.Background(), http.MethodGet, "/recipes", nil)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), http.MethodGet, "/nope", nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.requests.WithLabelValues("GET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.requests.WithLabelValues("GET", "not_found")))
}

func TestDecodeListShapes(t *testing.T) {
	bare := &Response{Body: []byte(`[{"_id": "r1"}, {"_id": "r2"}]`)}
	list, err := DecodeList[models.Recipe](bare, "recipes")
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, list.Total)

	env := &Response{Body: []byte(`{"recipes": [{"_id": "r1"}], "total": 40}`)}
	list, err = DecodeList[models.Recipe](env, "recipes")
	require.NoError(t, err)
	assert.Equal(t, "r1", list.Items[0].ID)
	assert.Equal(t, 40, list.Total)

	items := &Response{Body: []byte(`{"items": [{"_id": "u1"}], "pagination": {"total": 9}}`)}
	users, err := DecodeList[models.User](items, "users")
	require.NoError(t, err)
	assert.Equal(t, 9, users.Total)

	_, err = DecodeList[models.User](&Response{Body: []byte(`{"count": 3}`)}, "users")
	assert.Error(t, err)
}

func TestDecodeItemUnwrapsEnvelope(t *testing.T) {
	wrapped, err := DecodeItem[models.User](&Response{Body: []byte(`{"success": true, "user": {"_id": "u1", "name": "Ana"}}`)}, "user")
	require.NoError(t, err)
	assert.Equal(t, "Ana", wrapped.Name)

	bare, err := DecodeItem[models.User](&Response{Body: []byte(`{"id": "u2"}`)}, "user")
	require.NoError(t, err)
	assert.Equal(t, "u2", bare.ID)
}
