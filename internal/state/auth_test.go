package state

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/mocks"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/testhelpers"
	"github.com/pageza/recipehub/internal/types"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := types.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		UserID:           "u1",
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestInitWithoutTokenStaysSignedOut(t *testing.T) {
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	p := NewAuthProvider(svc, sess, nil)
	assert.Equal(t, StatusLoading, p.State().Status)

	st := p.Init(context.Background())
	assert.Equal(t, StatusUnauthenticated, st.Status)
	svc.AssertNotCalled(t, "GetCurrentUser", mock.Anything)
}

func TestInitWithExpiredTokenSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	require.NoError(t, sess.Save(ctx, signedToken(t, time.Now().Add(-time.Hour)), &models.User{ID: "u1"}))

	p := NewAuthProvider(svc, sess, nil)
	st := p.Init(ctx)

	assert.Equal(t, StatusUnauthenticated, st.Status)
	svc.AssertNotCalled(t, "GetCurrentUser", mock.Anything)
	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestInitRestoresUser(t *testing.T) {
	ctx := context.Background()
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	require.NoError(t, sess.Save(ctx, signedToken(t, time.Now().Add(time.Hour)), nil))

	svc.On("GetCurrentUser", mock.Anything).Return(&models.User{ID: "u1", Role: models.RoleAdmin}, nil).Once()

	p := NewAuthProvider(svc, sess, nil)
	st := p.Init(ctx)
	assert.Equal(t, StatusAuthenticated, st.Status)
	assert.True(t, p.IsAdmin())
	svc.AssertExpectations(t)
}

func TestInitFailureSignsOut(t *testing.T) {
	ctx := context.Background()
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	require.NoError(t, sess.Save(ctx, "opaque-token", nil))

	svc.On("GetCurrentUser", mock.Anything).
		Return(nil, &apiclient.APIError{Kind: apiclient.KindUnauthorized, Status: http.StatusUnauthorized}).Once()

	p := NewAuthProvider(svc, sess, nil)
	assert.Equal(t, StatusUnauthenticated, p.Init(ctx).Status)
	assert.Nil(t, p.User())
}

func TestLoginAndLogoutAgainstAPI(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Uma", "uma@recipes.test", "secret123", models.RoleUser)
	sess := session.New(session.NewMemoryStore(), nil)
	client := apiclient.New(api.URL(), sess)
	p := NewAuthProvider(service.NewAuthService(client, sess, nil), sess, nil)
	ctx := context.Background()
	p.Init(ctx)

	bad := p.Login(ctx, types.LoginRequest{Email: "uma@recipes.test", Password: "nope"})
	assert.False(t, bad.Success)
	assert.Equal(t, "Invalid credentials", bad.Error)
	assert.Equal(t, StatusUnauthenticated, p.State().Status)

	res := p.Login(ctx, types.LoginRequest{Email: "uma@recipes.test", Password: "secret123"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Uma", p.User().Name)
	assert.False(t, p.IsAdmin())

	p.Logout()
	assert.Equal(t, StatusUnauthenticated, p.State().Status)
	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestUnauthorizedResponseSignsOut(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Uma", "uma@recipes.test", "secret123", models.RoleUser)
	r := api.AddRecipe(models.Recipe{Title: "Curry"})
	sess := session.New(session.NewMemoryStore(), nil)
	client := apiclient.New(api.URL(), sess)
	auth := NewAuthProvider(service.NewAuthService(client, sess, nil), sess, nil)
	client.OnUnauthorized(auth.Expire)
	ctx := context.Background()
	auth.Init(ctx)
	require.True(t, auth.Login(ctx, types.LoginRequest{Email: "uma@recipes.test", Password: "secret123"}).Success)

	recipes := NewRecipeProvider(service.NewRecipeService(client, nil, nil), auth, nil, nil)
	_, err := recipes.FetchRecipes(ctx, types.RecipeFilter{})
	require.NoError(t, err)

	api.Fail("POST /api/recipes/:id/like", http.StatusUnauthorized)
	_, err = recipes.Like(ctx, r.ID)
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, StatusUnauthenticated, auth.State().Status)
	assert.Nil(t, auth.User())

	_, err = recipes.Like(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRegisterReportsFieldErrors(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Uma", "uma@recipes.test", "secret123", models.RoleUser)
	sess := session.New(session.NewMemoryStore(), nil)
	p := NewAuthProvider(service.NewAuthService(apiclient.New(api.URL(), sess), sess, nil), sess, nil)
	p.Init(context.Background())

	res := p.Register(context.Background(), types.RegisterRequest{Name: "Uma", Email: "uma@recipes.test", Password: "secret123"})
	assert.False(t, res.Success)
	assert.Equal(t, apiclient.KindValidation, res.Kind)
	assert.Equal(t, "Email already registered", res.Fields["email"])
	assert.Equal(t, StatusUnauthenticated, p.State().Status)
}

func TestLoginNetworkFailureUsesDefaultMessage(t *testing.T) {
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, &apiclient.APIError{Kind: apiclient.KindNetwork}).Once()

	p := NewAuthProvider(svc, sess, nil)
	res := p.Login(context.Background(), types.LoginRequest{Email: "a@b.test", Password: "secret123"})
	assert.Equal(t, "Login failed", res.Error)
	assert.Equal(t, apiclient.KindNetwork, res.Kind)
}

func TestUpdateProfileRefreshesUser(t *testing.T) {
	ctx := context.Background()
	svc := &mocks.MockAuthService{}
	sess := session.New(session.NewMemoryStore(), nil)
	require.NoError(t, sess.Save(ctx, "opaque-token", nil))
	svc.On("GetCurrentUser", mock.Anything).Return(&models.User{ID: "u1", Name: "Old"}, nil).Once()
	name := "New"
	svc.On("UpdateProfile", mock.Anything, types.UpdateProfileRequest{Name: &name}).
		Return(&models.User{ID: "u1", Name: "New"}, nil).Once()

	p := NewAuthProvider(svc, sess, nil)
	p.Init(ctx)
	_, err := p.UpdateProfile(ctx, types.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", p.User().Name)

	cached, err := sess.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", cached.Name)
}
