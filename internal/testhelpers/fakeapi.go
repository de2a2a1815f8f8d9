package testhelpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// Aggregate routes that SetAggregates(false) turns into 404s.
var aggregateRoutes = map[string]bool{
	"GET /api/users/count":         true,
	"GET /api/users/active-count":  true,
	"GET /api/users/stats":         true,
	"GET /api/recipes/count":       true,
	"GET /api/recipes/today-count": true,
	"GET /api/recipes/stats":       true,
	"GET /api/messages/stats":      true,
}

type fakeUser struct {
	models.User
	hash []byte
}

type hold struct {
	arrived     chan struct{}
	release     chan struct{}
	arrivedOnce sync.Once
	once        sync.Once
}

// FakeAPI is an in-memory stand-in for the recipe REST API, served by gin
// under /api. Routes are named "METHOD /api/path/:param" for failure
// injection and hit counting.
type FakeAPI struct {
	Server *httptest.Server
	secret []byte

	mu         sync.Mutex
	users      map[string]*fakeUser
	userOrder  []string
	recipes    []*models.Recipe
	messages   []*models.Message
	aggregates bool
	bareLists  bool
	failures   map[string]int
	holds      map[string]*hold
	hits       map[string]int
	now        func() time.Time
}

// NewFakeAPI starts the fake server; it is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &FakeAPI{
		secret:     []byte("fake-api-secret"),
		users:      map[string]*fakeUser{},
		aggregates: true,
		failures:   map[string]int{},
		holds:      map[string]*hold{},
		hits:       map[string]int{},
		now:        time.Now,
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(func() {
		f.mu.Lock()
		for _, h := range f.holds {
			h.once.Do(func() { close(h.release) })
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

// URL is the API base URL (…/api).
func (f *FakeAPI) URL() string { return f.Server.URL + "/api" }

// SetClock replaces the server clock used for createdAt and lastLogin.
func (f *FakeAPI) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// SetAggregates enables or disables (404) the count and stats endpoints.
func (f *FakeAPI) SetAggregates(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates = enabled
}

// SetBareLists makes list endpoints answer with bare arrays instead of envelopes.
func (f *FakeAPI) SetBareLists(bare bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bareLists = bare
}

// Fail makes route answer with status until Restore is called.
func (f *FakeAPI) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
}

// Restore removes an injected failure.
func (f *FakeAPI) Restore(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, route)
}

// Hold parks requests to route until release is called. arrived is closed
// when the first request reaches the route.
func (f *FakeAPI) Hold(route string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[route] = h
	f.mu.Unlock()
	return h.arrived, func() {
		f.mu.Lock()
		delete(f.holds, route)
		f.mu.Unlock()
		h.once.Do(func() { close(h.release) })
	}
}

// Hits counts requests that reached route.
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// AddUser stores a user with a bcrypt password hash.
func (f *FakeAPI) AddUser(name, email, password string, role models.Role) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{User: models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: f.now(),
	}, hash: hash}
	f.users[u.ID] = u
	f.userOrder = append(f.userOrder, u.ID)
	return u.User
}

// TouchLogin sets a user's last login time.
func (f *FakeAPI) TouchLogin(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLogin = &at
	}
}

// AddRecipe stores r, assigning an id and creation time when missing.
func (f *FakeAPI) AddRecipe(r models.Recipe) models.Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = f.now()
	}
	r.RecomputeRating()
	f.recipes = append(f.recipes, r.Clone())
	return r
}

// AddMessage stores m, assigning an id, status and creation time when missing.
func (f *FakeAPI) AddMessage(m models.Message) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.StatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = f.now()
	}
	cp := m
	f.messages = append(f.messages, &cp)
	return m
}

// Recipe returns the stored copy of a recipe.
func (f *FakeAPI) Recipe(id string) (models.Recipe, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.findRecipe(id); r != nil {
		return *r.Clone(), true
	}
	return models.Recipe{}, false
}

// Message returns the stored copy of a message.
func (f *FakeAPI) Message(id string) (models.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			return *m, true
		}
	}
	return models.Message{}, false
}

// TokenFor issues a bearer token for a stored user.
func (f *FakeAPI) TokenFor(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue(f.users[userID].User)
}

func (f *FakeAPI) issue(u models.User) string {
	now := f.now()
	claims := types.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: u.ID,
		Role:   string(u.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (f *FakeAPI) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), f.control)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/login", f.login)
	auth.POST("/register", f.register)
	auth.GET("/me", f.authenticated, f.me)

	users := api.Group("/users", f.authenticated)
	users.GET("/profile", f.me)
	users.PUT("/profile", f.updateProfile)
	users.GET("/starred", f.starred)
	users.GET("/stats", f.userStats)
	users.GET("/active-count", f.admin, f.activeCount)
	users.GET("/count", f.admin, f.usersCount)
	users.GET("", f.admin, f.listUsers)
	users.DELETE("/:id", f.admin, f.deleteUser)
	users.PUT("/:id/role", f.admin, f.updateRole)

	recipes := api.Group("/recipes")
	recipes.GET("", f.optionalAuth, f.listRecipes)
	recipes.GET("/count", f.recipesCount)
	recipes.GET("/today-count", f.todayCount)
	recipes.GET("/stats", f.recipeStats)
	recipes.GET("/:id", f.optionalAuth, f.getRecipe)
	recipes.POST("", f.authenticated, f.admin, f.createRecipe)
	recipes.PUT("/:id", f.authenticated, f.admin, f.updateRecipe)
	recipes.DELETE("/:id", f.authenticated, f.admin, f.deleteRecipe)
	recipes.POST("/:id/like", f.authenticated, f.like)
	recipes.POST("/:id/star", f.authenticated, f.star)
	recipes.POST("/:id/reviews", f.authenticated, f.addReview)

	messages := api.Group("/messages", f.authenticated)
	messages.POST("", f.sendMessage)
	messages.GET("/my-messages", f.myMessages)
	messages.GET("", f.admin, f.listMessages)
	messages.GET("/stats", f.admin, f.messageStats)
	messages.PUT("/:id/status", f.admin, f.updateStatus)
	messages.POST("/:id/reply", f.admin, f.reply)
	messages.DELETE("/:id", f.admin, f.deleteMessage)

	return r
}

// control applies holds, injected failures and disabled aggregates.
func (f *FakeAPI) control(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	f.mu.Lock()
	f.hits[route]++
	h := f.holds[route]
	f.mu.Unlock()

	if h != nil {
		h.arrivedOnce.Do(func() { close(h.arrived) })
		select {
		case <-h.release:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	f.mu.Lock()
	status, failing := f.failures[route]
	disabled := !f.aggregates && aggregateRoutes[route]
	f.mu.Unlock()

	switch {
	case disabled:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Not found"})
	case failing:
		c.AbortWithStatusJSON(status, gin.H{"message": http.StatusText(status)})
	default:
		c.Next()
	}
}

func (f *FakeAPI) currentUser(c *gin.Context) *fakeUser {
	v, ok := c.Get("fake_user")
	if !ok {
		return nil
	}
	return v.(*fakeUser)
}

func (f *FakeAPI) userFromHeader(c *gin.Context) (*fakeUser, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("no token")
	}
	var claims types.SessionClaims
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(*jwt.Token) (any, error) {
		return f.secret, nil
	})
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[claims.UserID]
	if !ok {
		return nil, errors.New("user gone")
	}
	return u, nil
}

func (f *FakeAPI) authenticated(c *gin.Context) {
	u, err := f.userFromHeader(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
		return
	}
	c.Set("fake_user", u)
	c.Next()
}

func (f *FakeAPI) optionalAuth(c *gin.Context) {
	if u, err := f.userFromHeader(c); err == nil {
		c.Set("fake_user", u)
	}
	c.Next()
}

func (f *FakeAPI) admin(c *gin.Context) {
	if u := f.currentUser(c); u == nil || u.Role != models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
		return
	}
	c.Next()
}

func (f *FakeAPI) login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, req.Email) && bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) == nil {
			now := f.now()
			u.LastLogin = &now
			c.JSON(http.StatusOK, gin.H{"success": true, "token": f.issue(u.User), "user": u.User})
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
}

func (f *FakeAPI) register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, req.Email) {
			f.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "User already exists",
				"errors":  []gin.H{{"path": "email", "msg": "Email already registered"}},
			})
			return
		}
	}
	f.mu.Unlock()

	user := f.AddUser(req.Name, req.Email, req.Password, models.RoleUser)
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	f.users[user.ID].LastLogin = &now
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": f.issue(f.users[user.ID].User), "user": f.users[user.ID].User})
}

func (f *FakeAPI) me(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"user": f.currentUser(c).User})
}

func (f *FakeAPI) updateProfile(c *gin.Context) {
	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.currentUser(c)
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.Location != nil {
		u.Location = *req.Location
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.User})
}

func (f *FakeAPI) userStats(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.currentUser(c)
	var stats types.UserStats
	for _, r := range f.recipes {
		if r.Author.ID == u.ID {
			stats.TotalRecipesCreated++
		}
		for _, rv := range r.Reviews {
			if rv.User.ID == u.ID {
				stats.TotalReviews++
			}
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (f *FakeAPI) usersCount(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"count": len(f.users)})
}

func (f *FakeAPI) activeCount(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	since := f.now().Add(-24 * time.Hour)
	n := 0
	for _, u := range f.users {
		if u.ActiveSince(since) {
			n++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (f *FakeAPI) listUsers(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.userOrder))
	for _, id := range f.userOrder {
		if u, ok := f.users[id]; ok {
			out = append(out, u.User)
		}
	}
	f.writeList(c, "users", out, len(out))
}

func (f *FakeAPI) deleteUser(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := c.Param("id")
	if _, ok := f.users[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	delete(f.users, id)
	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}

func (f *FakeAPI) updateRole(c *gin.Context) {
	var req types.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	u.Role = req.Role
	c.JSON(http.StatusOK, gin.H{"user": u.User})
}

// writeList answers with an envelope or a bare array. Caller holds f.mu.
func (f *FakeAPI) writeList(c *gin.Context, key string, items any, total int) {
	if f.bareLists {
		c.JSON(http.StatusOK, items)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: items, "total": total, "page": 1})
}

func (f *FakeAPI) findRecipe(id string) *models.Recipe {
	for _, r := range f.recipes {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// view returns a copy of r with flags relative to the caller.
func (f *FakeAPI) view(c *gin.Context, r *models.Recipe) *models.Recipe {
	cp := r.Clone()
	if u := f.currentUser(c); u != nil {
		cp.DeriveFlags(u.ID)
	} else {
		cp.DeriveFlags("")
	}
	return cp
}

func (f *FakeAPI) listRecipes(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	category := c.Query("category")
	search := strings.ToLower(c.Query("search"))
	out := make([]*models.Recipe, 0, len(f.recipes))
	for _, r := range f.recipes {
		if category != "" && r.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Title), search) {
			continue
		}
		out = append(out, f.view(c, r))
	}
	if c.Query("sort") == "newest" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	total := len(out)
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	f.writeList(c, "recipes", out, total)
}

func (f *FakeAPI) recipesCount(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"count": len(f.recipes)})
}

func (f *FakeAPI) todayCount(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	y, m, d := f.now().Local().Date()
	n := 0
	for _, r := range f.recipes {
		ry, rm, rd := r.CreatedAt.Local().Date()
		if ry == y && rm == m && rd == d {
			n++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (f *FakeAPI) recipeStats(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := types.RecipeStats{TotalRecipes: len(f.recipes)}
	var sum float64
	for _, r := range f.recipes {
		stats.TotalLikes += len(r.Likes)
		sum += r.AverageRating
	}
	if len(f.recipes) > 0 {
		stats.AverageRating = float64(int(sum/float64(len(f.recipes))*100+0.5)) / 100
	}
	c.JSON(http.StatusOK, stats)
}

func (f *FakeAPI) getRecipe(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findRecipe(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	c.JSON(http.StatusOK, f.view(c, r))
}

func (f *FakeAPI) recipeFromForm(c *gin.Context, r *models.Recipe) error {
	r.Title = c.PostForm("title")
	r.Description = c.PostForm("description")
	r.Category = c.PostForm("category")
	r.Difficulty = models.Difficulty(c.PostForm("difficulty"))
	r.PrepTime, _ = strconv.Atoi(c.PostForm("prepTime"))
	r.CookTime, _ = strconv.Atoi(c.PostForm("cookTime"))
	r.Servings, _ = strconv.Atoi(c.PostForm("servings"))
	for key, dst := range map[string]any{
		"ingredients":  &r.Ingredients,
		"instructions": &r.Instructions,
		"tags":         &r.Tags,
	} {
		if raw := c.PostForm(key); raw != "" {
			if err := json.Unmarshal([]byte(raw), dst); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if url := c.PostForm("image"); url != "" {
		r.Image = url
	}
	if fh, err := c.FormFile("image"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err := io.Copy(io.Discard, file); err != nil {
			return err
		}
		r.Image = "https://cdn.recipes.test/" + fh.Filename
	}
	if r.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

func (f *FakeAPI) createRecipe(c *gin.Context) {
	var r models.Recipe
	if err := f.recipeFromForm(c, &r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.currentUser(c)
	r.ID = uuid.NewString()
	r.Author = u.Ref()
	r.CreatedAt = f.now()
	r.Likes, r.Stars, r.Reviews = []models.UserRef{}, []models.UserRef{}, []models.Review{}
	f.recipes = append([]*models.Recipe{r.Clone()}, f.recipes...)
	c.JSON(http.StatusCreated, gin.H{"success": true, "recipe": f.view(c, &r)})
}

func (f *FakeAPI) updateRecipe(c *gin.Context) {
	f.mu.Lock()
	existing := f.findRecipe(c.Param("id"))
	f.mu.Unlock()
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	var r models.Recipe
	if err := f.recipeFromForm(c, &r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing.Title, existing.Description, existing.Category = r.Title, r.Description, r.Category
	existing.Difficulty, existing.PrepTime, existing.CookTime, existing.Servings = r.Difficulty, r.PrepTime, r.CookTime, r.Servings
	existing.Ingredients, existing.Instructions, existing.Tags = r.Ingredients, r.Instructions, r.Tags
	if r.Image != "" {
		existing.Image = r.Image
	}
	c.JSON(http.StatusOK, gin.H{"recipe": f.view(c, existing)})
}

func (f *FakeAPI) deleteRecipe(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := c.Param("id")
	for i, r := range f.recipes {
		if r.ID == id {
			f.recipes = append(f.recipes[:i], f.recipes[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Recipe removed"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
}

func (f *FakeAPI) like(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findRecipe(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	u := f.currentUser(c)
	r.ApplyLike(!r.HasLike(u.ID), r.Likes, models.UserRef{ID: u.ID})
	c.JSON(http.StatusOK, types.LikeResponse{Likes: r.Likes, Liked: r.HasLike(u.ID)})
}

func (f *FakeAPI) star(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findRecipe(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	u := f.currentUser(c)
	r.ApplyStar(!r.HasStar(u.ID), r.Stars, models.UserRef{ID: u.ID})
	c.JSON(http.StatusOK, types.StarResponse{Stars: r.Stars, Starred: r.HasStar(u.ID)})
}

func (f *FakeAPI) addReview(c *gin.Context) {
	var req types.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"path": "rating", "msg": "Rating must be between 1 and 5"}}})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findRecipe(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	u := f.currentUser(c)
	rv := models.Review{ID: uuid.NewString(), Rating: req.Rating, Comment: req.Comment, User: u.Ref(), CreatedAt: f.now()}
	if r.Reviews == nil {
		r.Reviews = []models.Review{}
	}
	r.AddReview(rv)
	c.JSON(http.StatusCreated, gin.H{"review": rv, "recipe": f.view(c, r)})
}

func (f *FakeAPI) starred(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.currentUser(c)
	out := []*models.Recipe{}
	for _, r := range f.recipes {
		if r.HasStar(u.ID) {
			out = append(out, f.view(c, r))
		}
	}
	f.writeList(c, "recipes", out, len(out))
}

func (f *FakeAPI) sendMessage(c *gin.Context) {
	var m models.Message
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		m.Type = models.MessageType(c.PostForm("type"))
		m.Title = c.PostForm("title")
		m.Content = c.PostForm("content")
		if fh, err := c.FormFile("image"); err == nil {
			m.Image = "https://cdn.recipes.test/" + fh.Filename
		}
	} else {
		var req types.MessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
			return
		}
		m.Type, m.Title, m.Content, m.Image = req.Type, req.Title, req.Content, req.ImageURL
	}
	if m.Title == "" || m.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"path": "title", "msg": "Title and content are required"}}})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.NewString()
	m.Status = models.StatusPending
	m.User = f.currentUser(c).Ref()
	m.CreatedAt = f.now()
	f.messages = append(f.messages, &m)
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": m})
}

func (f *FakeAPI) myMessages(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.currentUser(c)
	out := []models.Message{}
	for _, m := range f.messages {
		if m.User.ID == u.ID {
			out = append(out, *m)
		}
	}
	f.writeList(c, "messages", out, len(out))
}

func (f *FakeAPI) listMessages(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := c.Query("status")
	out := []models.Message{}
	for _, m := range f.messages {
		if status == "" || string(m.Status) == status {
			out = append(out, *m)
		}
	}
	f.writeList(c, "messages", out, len(out))
}

func (f *FakeAPI) messageStats(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := types.MessageStats{Total: len(f.messages)}
	for _, m := range f.messages {
		switch m.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusRead:
			stats.Read++
		case models.StatusReplied:
			stats.Replied++
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (f *FakeAPI) findMessage(c *gin.Context) *models.Message {
	for _, m := range f.messages {
		if m.ID == c.Param("id") {
			return m
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
	return nil
}

func (f *FakeAPI) updateStatus(c *gin.Context) {
	var req types.MessageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m := f.findMessage(c); m != nil {
		m.Status = req.Status
		c.JSON(http.StatusOK, gin.H{"message": m})
	}
}

func (f *FakeAPI) reply(c *gin.Context) {
	var req types.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m := f.findMessage(c); m != nil {
		m.Reply = req.Content
		m.Status = models.StatusReplied
		c.JSON(http.StatusOK, gin.H{"message": m})
	}
}

func (f *FakeAPI) deleteMessage(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.ID == c.Param("id") {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Message removed"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
}
