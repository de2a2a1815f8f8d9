package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/media"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// RecipeService handles recipe operations
type RecipeService struct {
	client   Requester
	uploader media.Uploader
	logger   *zap.Logger
	now      func() time.Time
}

// NewRecipeService creates a new RecipeService. uploader may be nil, in
// which case image files are sent to the API inside the form.
func NewRecipeService(client Requester, uploader media.Uploader, log *zap.Logger) *RecipeService {
	return &RecipeService{
		client:   client,
		uploader: uploader,
		logger:   logger.OrNop(log).Named("recipes"),
		now:      time.Now,
	}
}

// GetRecipes lists recipes matching filter.
func (s *RecipeService) GetRecipes(ctx context.Context, filter types.RecipeFilter) (types.List[models.Recipe], error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/recipes", nil, apiclient.WithQuery(filter.Query()))
	if err != nil {
		return types.List[models.Recipe]{}, err
	}
	return apiclient.DecodeList[models.Recipe](resp, "recipes")
}

// GetRecentRecipes lists the newest recipes.
func (s *RecipeService) GetRecentRecipes(ctx context.Context, limit int) (types.List[models.Recipe], error) {
	return s.GetRecipes(ctx, types.RecipeFilter{Sort: "newest", Limit: limit})
}

// GetRecipeByID fetches one recipe.
func (s *RecipeService) GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/recipes/"+id, nil)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.Recipe](resp, "recipe", "data")
}

// CreateRecipe validates input and posts it as a form.
func (s *RecipeService) CreateRecipe(ctx context.Context, input *types.RecipeInput) (*models.Recipe, error) {
	body, err := s.recipeForm(ctx, input)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Send(ctx, http.MethodPost, "/recipes", body)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.Recipe](resp, "recipe", "data")
}

// UpdateRecipe validates input and puts it as a form.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id string, input *types.RecipeInput) (*models.Recipe, error) {
	body, err := s.recipeForm(ctx, input)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Send(ctx, http.MethodPut, "/recipes/"+id, body)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.Recipe](resp, "recipe", "data")
}

// DeleteRecipe removes a recipe.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id string) error {
	_, err := s.client.Send(ctx, http.MethodDelete, "/recipes/"+id, nil)
	return err
}

// LikeRecipe toggles the signed-in user's like.
func (s *RecipeService) LikeRecipe(ctx context.Context, id string) (*types.LikeResponse, error) {
	resp, err := s.client.Send(ctx, http.MethodPost, "/recipes/"+id+"/like", nil)
	if err != nil {
		return nil, err
	}
	var out types.LikeResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StarRecipe toggles the signed-in user's star.
func (s *RecipeService) StarRecipe(ctx context.Context, id string) (*types.StarResponse, error) {
	resp, err := s.client.Send(ctx, http.MethodPost, "/recipes/"+id+"/star", nil)
	if err != nil {
		return nil, err
	}
	var out types.StarResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddReview posts a review.
func (s *RecipeService) AddReview(ctx context.Context, id string, req types.ReviewRequest) (*types.ReviewResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	resp, err := s.client.Send(ctx, http.MethodPost, "/recipes/"+id+"/reviews", req)
	if err != nil {
		return nil, err
	}
	var out types.ReviewResponse
	if len(resp.Body) > 0 {
		if err := resp.Decode(&out); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// GetStarredRecipes lists the recipes the signed-in user starred.
func (s *RecipeService) GetStarredRecipes(ctx context.Context) ([]models.Recipe, error) {
	return starredRecipes(ctx, s.client)
}

// RecipesCount calls the dedicated count endpoint only.
func (s *RecipeService) RecipesCount(ctx context.Context) (int, error) {
	return getCount(ctx, s.client, "/recipes/count")
}

// GetRecipesCount prefers the count endpoint and falls back to the list length.
func (s *RecipeService) GetRecipesCount(ctx context.Context) (int, error) {
	n, _, err := FirstSuccess(ctx, s.logger, "recipes_count",
		Source[int]{Name: "endpoint", Fetch: s.RecipesCount},
		Source[int]{Name: "list", Fetch: func(ctx context.Context) (int, error) {
			list, err := s.fallbackList(ctx)
			if err != nil {
				return 0, err
			}
			return list.Total, nil
		}},
	)
	return n, err
}

// TodayRecipesCount calls the dedicated today-count endpoint only.
func (s *RecipeService) TodayRecipesCount(ctx context.Context) (int, error) {
	return getCount(ctx, s.client, "/recipes/today-count")
}

// GetTodayRecipesCount prefers the endpoint and falls back to counting
// recipes created on the current local calendar day.
func (s *RecipeService) GetTodayRecipesCount(ctx context.Context) (int, error) {
	n, _, err := FirstSuccess(ctx, s.logger, "today_recipes_count",
		Source[int]{Name: "endpoint", Fetch: s.TodayRecipesCount},
		Source[int]{Name: "list", Fetch: func(ctx context.Context) (int, error) {
			list, err := s.fallbackList(ctx)
			if err != nil {
				return 0, err
			}
			return CountToday(list.Items, s.now()), nil
		}},
	)
	return n, err
}

// RecipeStats calls the dedicated stats endpoint only.
func (s *RecipeService) RecipeStats(ctx context.Context) (types.RecipeStats, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/recipes/stats", nil)
	if err != nil {
		return types.RecipeStats{}, err
	}
	var out types.RecipeStats
	if err := resp.Decode(&out); err != nil {
		return types.RecipeStats{}, err
	}
	return out, nil
}

// GetRecipeStats prefers the stats endpoint and falls back to computing
// the stats from the recipe list.
func (s *RecipeService) GetRecipeStats(ctx context.Context) (types.RecipeStats, error) {
	stats, _, err := FirstSuccess(ctx, s.logger, "recipe_stats",
		Source[types.RecipeStats]{Name: "endpoint", Fetch: s.RecipeStats},
		Source[types.RecipeStats]{Name: "list", Fetch: func(ctx context.Context) (types.RecipeStats, error) {
			list, err := s.fallbackList(ctx)
			if err != nil {
				return types.RecipeStats{}, err
			}
			return ComputeRecipeStats(list.Items), nil
		}},
	)
	return stats, err
}

func (s *RecipeService) fallbackList(ctx context.Context) (types.List[models.Recipe], error) {
	return s.GetRecipes(ctx, types.RecipeFilter{Limit: FallbackLimit})
}

// CountToday counts recipes created on now's local calendar day.
func CountToday(recipes []models.Recipe, now time.Time) int {
	y, m, d := now.Local().Date()
	n := 0
	for i := range recipes {
		if recipes[i].CreatedAt.IsZero() {
			continue
		}
		ry, rm, rd := recipes[i].CreatedAt.Local().Date()
		if ry == y && rm == m && rd == d {
			n++
		}
	}
	return n
}

// ComputeRecipeStats sums likes and averages recipe ratings, rounding the
// average to two decimals. Unrated recipes count as zero.
func ComputeRecipeStats(recipes []models.Recipe) types.RecipeStats {
	stats := types.RecipeStats{TotalRecipes: len(recipes)}
	if len(recipes) == 0 {
		return stats
	}
	var ratings float64
	for i := range recipes {
		stats.TotalLikes += len(recipes[i].Likes)
		ratings += recipes[i].AverageRating
	}
	stats.AverageRating = math.Round(ratings/float64(len(recipes))*100) / 100
	return stats
}

func (s *RecipeService) recipeForm(ctx context.Context, input *types.RecipeInput) (*apiclient.Multipart, error) {
	if input == nil {
		return nil, apiclient.ValidationFailed(fmt.Errorf("recipe is required"))
	}
	if err := types.Validate(input); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}

	form := &apiclient.Multipart{Fields: map[string]string{
		"title":       input.Title,
		"description": input.Description,
		"category":    input.Category,
		"difficulty":  string(input.Difficulty),
		"prepTime":    strconv.Itoa(input.PrepTime),
		"cookTime":    strconv.Itoa(input.CookTime),
		"servings":    strconv.Itoa(input.Servings),
	}}
	for key, v := range map[string]any{
		"ingredients":  input.Ingredients,
		"instructions": input.Instructions,
		"tags":         input.Tags,
	} {
		if err := form.SetJSON(key, v); err != nil {
			return nil, err
		}
	}

	imageURL := input.ImageURL
	if input.Image != nil {
		if _, err := media.Check(input.Image); err != nil {
			return nil, apiclient.ValidationFailed(types.FieldErrors{"image": err.Error()})
		}
		if s.uploader != nil {
			url, err := s.uploader.Upload(ctx, media.FolderRecipes, input.Image)
			if err != nil {
				return nil, fmt.Errorf("failed to upload recipe image: %w", err)
			}
			imageURL = url
		} else {
			form.Files = append(form.Files, apiclient.File{
				Field:       "image",
				Name:        input.Image.Name,
				ContentType: input.Image.ContentType,
				Data:        input.Image.Data,
			})
		}
	}
	if imageURL != "" {
		form.Fields["image"] = imageURL
	}
	return form, nil
}
