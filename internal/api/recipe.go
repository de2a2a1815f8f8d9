package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/types"
)

// RecipeLimits throttles the write routes; nil limiters allow everything.
type RecipeLimits struct {
	Create *middleware.RateLimiter
	Review *middleware.RateLimiter
}

// RecipeHandler serves the recipe collection held by the recipe provider.
type RecipeHandler struct {
	recipes *state.RecipeProvider
	svc     service.IRecipeService
	auth    *state.AuthProvider
	limits  RecipeLimits
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(recipes *state.RecipeProvider, svc service.IRecipeService, auth *state.AuthProvider, limits RecipeLimits) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, svc: svc, auth: auth, limits: limits}
}

// RegisterRoutes registers the recipe routes
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/starred", middleware.RequireAuth(h.auth), h.GetStarred)
		recipes.GET("/:id", h.GetRecipe)

		recipes.POST("/:id/like", middleware.RequireAuth(h.auth), h.Like)
		recipes.POST("/:id/star", middleware.RequireAuth(h.auth), h.Star)
		recipes.POST("/:id/reviews", middleware.RequireAuth(h.auth), h.limits.Review.RateLimitMiddleware(), h.AddReview)

		admin := recipes.Group("", middleware.RequireAdmin(h.auth))
		admin.POST("", h.limits.Create.RateLimitMiddleware(), h.CreateRecipe)
		admin.PUT("/:id", h.UpdateRecipe)
		admin.DELETE("/:id", h.DeleteRecipe)
	}
}

// ListRecipes reloads the collection with the query filter.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	var filter types.RecipeFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	_, err := h.recipes.FetchRecipes(c.Request.Context(), filter)
	if err != nil && !errors.Is(err, state.ErrSuperseded) {
		fail(c, err)
		return
	}
	st := h.recipes.State()
	c.JSON(http.StatusOK, gin.H{"recipes": st.Recipes, "total": st.Total})
}

// GetRecipe loads one recipe and refreshes the held copy.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	r, err := h.svc.GetRecipeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	r.DeriveFlags(h.currentUserID())
	h.recipes.ReplaceRecipe(*r)
	c.JSON(http.StatusOK, r)
}

func (h *RecipeHandler) currentUserID() string {
	if u := h.auth.User(); u != nil {
		return u.ID
	}
	return ""
}

// GetStarred lists the signed-in user's starred recipes.
func (h *RecipeHandler) GetStarred(c *gin.Context) {
	recipes, err := h.svc.GetStarredRecipes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Like toggles the like of the signed-in user.
func (h *RecipeHandler) Like(c *gin.Context) {
	h.toggle(c, h.recipes.Like)
}

// Star toggles the star of the signed-in user.
func (h *RecipeHandler) Star(c *gin.Context) {
	h.toggle(c, h.recipes.Star)
}

func (h *RecipeHandler) toggle(c *gin.Context, apply func(ctx context.Context, id string) (models.Recipe, error)) {
	r, err := apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// AddReview rates a recipe.
func (h *RecipeHandler) AddReview(c *gin.Context) {
	var req types.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.recipes.AddReview(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// CreateRecipe accepts JSON or a multipart form with an optional image.
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	input, err := bindRecipeInput(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.recipes.Create(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": r})
}

// UpdateRecipe saves edits to a recipe. Recipes not held locally are
// updated on the server only.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	input, err := bindRecipeInput(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	r, err := h.recipes.Update(c.Request.Context(), id, input)
	if errors.Is(err, state.ErrRecipeNotFound) {
		var updated *models.Recipe
		updated, err = h.svc.UpdateRecipe(c.Request.Context(), id, input)
		if updated != nil {
			r = *updated
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": r})
}

// DeleteRecipe removes a recipe.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id := c.Param("id")
	err := h.recipes.Delete(c.Request.Context(), id)
	if errors.Is(err, state.ErrRecipeNotFound) {
		err = h.svc.DeleteRecipe(c.Request.Context(), id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindRecipeInput(c *gin.Context) (*types.RecipeInput, error) {
	if !isMultipart(c) {
		var input types.RecipeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, err
		}
		return &input, nil
	}

	input := &types.RecipeInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Difficulty:  models.Difficulty(c.PostForm("difficulty")),
		ImageURL:    c.PostForm("image"),
	}
	for name, dst := range map[string]*int{
		"prepTime": &input.PrepTime,
		"cookTime": &input.CookTime,
		"servings": &input.Servings,
	} {
		if v := c.PostForm(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.New(name + " must be a number")
			}
			*dst = n
		}
	}
	if err := jsonField(c, "ingredients", &input.Ingredients); err != nil {
		return nil, err
	}
	if err := jsonField(c, "tags", &input.Tags); err != nil {
		return nil, err
	}
	var steps models.Instructions
	if raw := c.PostForm("instructions"); raw != "" {
		if err := steps.UnmarshalJSON([]byte(raw)); err != nil {
			return nil, errors.New("instructions must be a JSON array")
		}
	}
	input.Instructions = steps

	file, err := formFile(c, "image")
	if err != nil {
		return nil, err
	}
	input.Image = file
	return input, nil
}
