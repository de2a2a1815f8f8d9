package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/media"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/testhelpers"
	"github.com/pageza/recipehub/internal/types"
)

type fixture struct {
	api      *testhelpers.FakeAPI
	session  *session.Session
	auth     *AuthService
	recipes  *RecipeService
	messages *MessageService
	admin    models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	api := testhelpers.NewFakeAPI(t)
	sess := session.New(session.NewMemoryStore(), nil)
	client := apiclient.New(api.URL(), sess)
	return &fixture{
		api:      api,
		session:  sess,
		auth:     NewAuthService(client, sess, nil),
		recipes:  NewRecipeService(client, nil, nil),
		messages: NewMessageService(client, nil, nil),
		admin:    api.AddUser("Admin", "admin@recipes.test", "secret123", models.RoleAdmin),
	}
}

func (f *fixture) loginAdmin(t *testing.T) {
	t.Helper()
	_, err := f.auth.Login(context.Background(), types.LoginRequest{Email: "admin@recipes.test", Password: "secret123"})
	require.NoError(t, err)
}

func TestLoginPersistsSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out, err := f.auth.Login(ctx, types.LoginRequest{Email: "admin@recipes.test", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, out.User.ID)

	token, err := f.session.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, out.Token, token)
	cached, err := f.session.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Admin", cached.Name)

	require.NoError(t, f.auth.Logout(ctx))
	token, _ = f.session.Token(ctx)
	assert.Empty(t, token)
}

func TestLoginFailureLeavesSessionEmpty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, types.LoginRequest{Email: "admin@recipes.test", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apiclient.IsValidation(err))
	assert.Equal(t, "Invalid credentials", apiclient.UserMessage(err))

	token, _ := f.session.Token(ctx)
	assert.Empty(t, token)
}

func TestRegisterValidatesBeforeSending(t *testing.T) {
	f := setup(t)

	_, err := f.auth.Register(context.Background(), types.RegisterRequest{Name: "Bo", Email: "bo@recipes.test", Password: "123"})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiclient.KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Fields, "password")
	assert.Zero(t, f.api.Hits("POST /api/auth/register"))
}

func TestRegisterDuplicateEmailCarriesFieldErrors(t *testing.T) {
	f := setup(t)

	_, err := f.auth.Register(context.Background(), types.RegisterRequest{Name: "Other", Email: "admin@recipes.test", Password: "secret123"})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "User already exists", apiErr.Message)
	assert.Equal(t, "Email already registered", apiErr.Fields["email"])
}

func TestUpdateProfileRefreshesCachedUser(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	ctx := context.Background()

	bio := "Bakes bread"
	user, err := f.auth.UpdateProfile(ctx, types.UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, user.Bio)

	cached, err := f.session.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, bio, cached.Bio)
}

func TestGetUsersCountSameThroughEitherPath(t *testing.T) {
	f := setup(t)
	f.api.AddUser("A", "a@recipes.test", "secret123", models.RoleUser)
	f.api.AddUser("B", "b@recipes.test", "secret123", models.RoleUser)
	f.loginAdmin(t)
	ctx := context.Background()

	direct, err := f.auth.GetUsersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, direct)
	assert.Zero(t, f.api.Hits("GET /api/users"))

	f.api.SetAggregates(false)
	derived, err := f.auth.GetUsersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, direct, derived)
	assert.Equal(t, 1, f.api.Hits("GET /api/users"))

	f.api.SetBareLists(true)
	bare, err := f.auth.GetUsersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, direct, bare)
}

func TestGetUsersCountFallsBackOnServerError(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	f.api.Fail("GET /api/users/count", http.StatusInternalServerError)

	n, err := f.auth.GetUsersCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFallbackDoesNotSwallowUnauthorized(t *testing.T) {
	f := setup(t)

	_, err := f.auth.GetUsersCount(context.Background())
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Zero(t, f.api.Hits("GET /api/users"))
}

func TestGetActiveUsersCountFallback(t *testing.T) {
	f := setup(t)
	now := time.Now()
	recent := f.api.AddUser("Recent", "r@recipes.test", "secret123", models.RoleUser)
	stale := f.api.AddUser("Stale", "s@recipes.test", "secret123", models.RoleUser)
	f.api.TouchLogin(recent.ID, now.Add(-2*time.Hour))
	f.api.TouchLogin(stale.ID, now.Add(-48*time.Hour))
	f.loginAdmin(t)
	ctx := context.Background()

	direct, err := f.auth.GetActiveUsersCount(ctx)
	require.NoError(t, err)

	f.api.SetAggregates(false)
	derived, err := f.auth.GetActiveUsersCount(ctx)
	require.NoError(t, err)
	// the admin just logged in and Recent is within the window
	assert.Equal(t, 2, derived)
	assert.Equal(t, direct, derived)
}

func TestGetUserStatsDefaultsWhenMissing(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	f.api.SetAggregates(false)

	stats, err := f.auth.GetUserStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.UserStats{}, stats)
}

func seedRecipes(f *fixture, now time.Time) {
	f.api.AddRecipe(models.Recipe{
		Title:     "Today A",
		Author:    f.admin.Ref(),
		Likes:     []models.UserRef{{ID: "u1"}, {ID: "u2"}},
		Reviews:   []models.Review{{Rating: 5}, {Rating: 4}},
		CreatedAt: now,
	})
	f.api.AddRecipe(models.Recipe{
		Title:     "Today B",
		Author:    f.admin.Ref(),
		Likes:     []models.UserRef{{ID: "u1"}},
		Reviews:   []models.Review{{Rating: 3}},
		CreatedAt: now.Add(-time.Minute),
	})
	f.api.AddRecipe(models.Recipe{
		Title:     "Older",
		Author:    f.admin.Ref(),
		Reviews:   []models.Review{},
		CreatedAt: now.AddDate(0, 0, -3),
	})
}

func TestRecipeAggregatesFallback(t *testing.T) {
	f := setup(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	f.api.SetClock(func() time.Time { return now })
	f.recipes.now = func() time.Time { return now }
	seedRecipes(f, now)
	ctx := context.Background()

	count, err := f.recipes.GetRecipesCount(ctx)
	require.NoError(t, err)
	today, err := f.recipes.GetTodayRecipesCount(ctx)
	require.NoError(t, err)
	stats, err := f.recipes.GetRecipeStats(ctx)
	require.NoError(t, err)

	f.api.SetAggregates(false)

	fbCount, err := f.recipes.GetRecipesCount(ctx)
	require.NoError(t, err)
	fbToday, err := f.recipes.GetTodayRecipesCount(ctx)
	require.NoError(t, err)
	fbStats, err := f.recipes.GetRecipeStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, count, fbCount)
	assert.Equal(t, 2, today)
	assert.Equal(t, today, fbToday)
	// (4.5 + 3 + 0) / 3
	assert.Equal(t, types.RecipeStats{TotalLikes: 3, AverageRating: 2.5, TotalRecipes: 3}, fbStats)
	assert.Equal(t, stats, fbStats)
	assert.Equal(t, 3, f.api.Hits("GET /api/recipes"))
}

func TestComputeRecipeStatsRounds(t *testing.T) {
	stats := ComputeRecipeStats([]models.Recipe{{AverageRating: 4}, {AverageRating: 4}, {AverageRating: 5}})
	assert.Equal(t, 4.33, stats.AverageRating)
	assert.Equal(t, types.RecipeStats{}, ComputeRecipeStats(nil))
}

func TestCountTodayUsesLocalCalendarDay(t *testing.T) {
	now := time.Date(2026, 3, 14, 0, 30, 0, 0, time.Local)
	recipes := []models.Recipe{
		{CreatedAt: now.Add(-time.Hour)},
		{CreatedAt: now.Add(time.Hour)},
		{},
	}
	assert.Equal(t, 1, CountToday(recipes, now))
}

func TestMessagesStatsFallback(t *testing.T) {
	f := setup(t)
	f.api.AddMessage(models.Message{Type: models.MessageQuestion, Title: "q", Content: "c"})
	f.api.AddMessage(models.Message{Type: models.MessageFeedback, Title: "f", Content: "c", Status: models.StatusRead})
	f.api.AddMessage(models.Message{Type: models.MessageReview, Title: "r", Content: "c", Status: models.StatusReplied})
	f.loginAdmin(t)
	ctx := context.Background()

	direct, err := f.messages.GetMessagesStats(ctx)
	require.NoError(t, err)
	f.api.SetAggregates(false)
	derived, err := f.messages.GetMessagesStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.MessageStats{Total: 3, Pending: 1, Read: 1, Replied: 1}, derived)
	assert.Equal(t, direct, derived)
}

func TestMessageLifecycle(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	ctx := context.Background()

	msg, err := f.messages.SendMessage(ctx, &types.MessageRequest{Type: models.MessageSuggestion, Title: "More soups", Content: "Please"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, msg.Status)
	assert.Equal(t, f.admin.ID, msg.User.ID)

	mine, err := f.messages.GetUserMessages(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	read, err := f.messages.UpdateMessageStatus(ctx, msg.ID, models.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, read.Status)

	replied, err := f.messages.ReplyToMessage(ctx, msg.ID, "Coming soon")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReplied, replied.Status)
	assert.Equal(t, "Coming soon", replied.Reply)

	_, err = f.messages.UpdateMessageStatus(ctx, msg.ID, "archived")
	assert.True(t, apiclient.IsValidation(err))

	require.NoError(t, f.messages.DeleteMessage(ctx, msg.ID))
	err = f.messages.DeleteMessage(ctx, msg.ID)
	assert.True(t, apiclient.IsNotFound(err))
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, folder string, file *types.FileUpload) (string, error) {
	args := m.Called(ctx, folder, file)
	return args.String(0), args.Error(1)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func TestSendMessageUploadsImageFirst(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	up := &mockUploader{}
	up.On("Upload", mock.Anything, media.FolderMessages, mock.Anything).Return("https://bucket.test/m.png", nil)
	f.messages.uploader = up

	msg, err := f.messages.SendMessage(context.Background(), &types.MessageRequest{
		Type:    models.MessageFeedback,
		Title:   "Photo",
		Content: "See attached",
		Image:   &types.FileUpload{Name: "m.png", Data: pngBytes},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.test/m.png", msg.Image)
	up.AssertExpectations(t)
}

func TestSendMessageMultipartWithoutUploader(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)

	msg, err := f.messages.SendMessage(context.Background(), &types.MessageRequest{
		Type:    models.MessageFeedback,
		Title:   "Photo",
		Content: "See attached",
		Image:   &types.FileUpload{Name: "m.png", ContentType: "image/png", Data: pngBytes},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.recipes.test/m.png", msg.Image)
}

func validRecipe() *types.RecipeInput {
	return &types.RecipeInput{
		Title:        "Tomato soup",
		Description:  "Warm",
		Category:     "Soup",
		Difficulty:   models.DifficultyEasy,
		PrepTime:     10,
		CookTime:     20,
		Servings:     4,
		Ingredients:  []string{"tomatoes", "salt"},
		Instructions: []models.Instruction{{Step: 1, Text: "Simmer"}},
		Tags:         []string{"vegan"},
	}
}

func TestCreateAndUpdateRecipe(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	ctx := context.Background()

	input := validRecipe()
	input.Image = &types.FileUpload{Name: "soup.png", ContentType: "image/png", Data: pngBytes}
	created, err := f.recipes.CreateRecipe(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "Tomato soup", created.Title)
	assert.Equal(t, []string{"tomatoes", "salt"}, created.Ingredients)
	assert.Equal(t, "https://cdn.recipes.test/soup.png", created.Image)
	assert.Equal(t, f.admin.ID, created.Author.ID)

	update := validRecipe()
	update.Title = "Tomato soup II"
	updated, err := f.recipes.UpdateRecipe(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Tomato soup II", updated.Title)

	bad := validRecipe()
	bad.Difficulty = "Extreme"
	_, err = f.recipes.CreateRecipe(ctx, bad)
	assert.True(t, apiclient.IsValidation(err))

	require.NoError(t, f.recipes.DeleteRecipe(ctx, created.ID))
	_, err = f.recipes.GetRecipeByID(ctx, created.ID)
	assert.True(t, apiclient.IsNotFound(err))
}

func TestLikeStarAndReview(t *testing.T) {
	f := setup(t)
	f.loginAdmin(t)
	ctx := context.Background()
	r := f.api.AddRecipe(models.Recipe{Title: "Pie", Reviews: []models.Review{}})

	like, err := f.recipes.LikeRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)
	assert.Equal(t, []models.UserRef{{ID: f.admin.ID}}, like.Likes)

	star, err := f.recipes.StarRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, star.Starred)

	starred, err := f.recipes.GetStarredRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, starred, 1)
	assert.True(t, starred[0].Starred)

	review, err := f.recipes.AddReview(ctx, r.ID, types.ReviewRequest{Rating: 4, Comment: "Good"})
	require.NoError(t, err)
	require.NotNil(t, review.Recipe)
	assert.Equal(t, 4.0, review.Recipe.AverageRating)

	_, err = f.recipes.AddReview(ctx, r.ID, types.ReviewRequest{Rating: 0})
	assert.True(t, apiclient.IsValidation(err))
}

func TestFirstSuccess(t *testing.T) {
	ctx := context.Background()
	notFound := &apiclient.APIError{Kind: apiclient.KindNotFound}
	unauthorized := &apiclient.APIError{Kind: apiclient.KindUnauthorized}
	called := 0
	third := Source[int]{Name: "third", Fetch: func(context.Context) (int, error) { called++; return 3, nil }}

	v, name, err := FirstSuccess(ctx, nil, "op",
		Source[int]{Name: "first", Fetch: func(context.Context) (int, error) { return 0, notFound }},
		Source[int]{Name: "second", Fetch: func(context.Context) (int, error) { return 0, errors.New("bad json") }},
		third,
	)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, "third", name)

	_, _, err = FirstSuccess(ctx, nil, "op",
		Source[int]{Name: "first", Fetch: func(context.Context) (int, error) { return 0, unauthorized }},
		third,
	)
	assert.ErrorIs(t, err, unauthorized)
	assert.Equal(t, 1, called)

	last := &apiclient.APIError{Kind: apiclient.KindNetwork}
	_, _, err = FirstSuccess(ctx, nil, "op",
		Source[int]{Name: "first", Fetch: func(context.Context) (int, error) { return 0, notFound }},
		Source[int]{Name: "second", Fetch: func(context.Context) (int, error) { return 0, last }},
	)
	assert.ErrorIs(t, err, last)
}
