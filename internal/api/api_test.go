package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/dashboard"
	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/testhelpers"
	"github.com/pageza/recipehub/internal/types"
)

const (
	adminEmail = "ada@recipes.test"
	userEmail  = "uma@recipes.test"
	password   = "secret123"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// gateway wires every handler against a fake backend.
type gateway struct {
	api     *testhelpers.FakeAPI
	router  *gin.Engine
	auth    *state.AuthProvider
	recipes *state.RecipeProvider
	center  *notify.Center
	admin   models.User
	user    models.User
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := testhelpers.NewFakeAPI(t)
	g := &gateway{
		api:    fake,
		center: notify.NewCenter(0),
		admin:  fake.AddUser("Ada", adminEmail, password, models.RoleAdmin),
		user:   fake.AddUser("Uma", userEmail, password, models.RoleUser),
	}

	sess := session.New(session.NewMemoryStore(), nil)
	client := apiclient.New(fake.URL(), sess)
	authSvc := service.NewAuthService(client, sess, nil)
	recipeSvc := service.NewRecipeService(client, nil, nil)
	messageSvc := service.NewMessageService(client, nil, nil)

	g.auth = state.NewAuthProvider(authSvc, sess, nil)
	client.OnUnauthorized(g.auth.Expire)
	g.auth.Init(context.Background())
	g.recipes = state.NewRecipeProvider(recipeSvc, g.auth, g.center, nil)
	messages := state.NewMessageProvider(messageSvc, g.center, nil)
	engine := dashboard.NewEngine(authSvc, recipeSvc, messageSvc, sess,
		dashboard.WithNotifier(g.center),
		dashboard.WithRegisterer(prometheus.NewRegistry()),
	)

	g.router = gin.New()
	g.router.Use(middleware.ErrorHandler(nil))
	v1 := g.router.Group("/api/v1")
	NewSessionHandler(g.auth, authSvc).RegisterRoutes(v1)
	NewRecipeHandler(g.recipes, recipeSvc, g.auth, RecipeLimits{}).RegisterRoutes(v1)
	NewMessageHandler(messages, g.auth, nil).RegisterRoutes(v1)
	NewAdminHandler(engine, nil, authSvc, messageSvc, g.auth).RegisterRoutes(v1)
	NewNotificationHandler(g.center).RegisterRoutes(v1)
	return g
}

func (g *gateway) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *gateway) form(t *testing.T, method, path string, fields map[string]string, file string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		part, err := mw.CreateFormFile("image", file)
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *gateway) login(t *testing.T, email string) {
	t.Helper()
	w := g.do(t, http.MethodPost, "/api/v1/session/login", types.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
