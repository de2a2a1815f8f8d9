package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// MockRecipeService is a mock implementation of the recipe service
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) GetRecipes(ctx context.Context, filter types.RecipeFilter) (types.List[models.Recipe], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(types.List[models.Recipe]), args.Error(1)
}

func (m *MockRecipeService) GetRecentRecipes(ctx context.Context, limit int) (types.List[models.Recipe], error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(types.List[models.Recipe]), args.Error(1)
}

func (m *MockRecipeService) GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, input *types.RecipeInput) (*models.Recipe, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, id string, input *types.RecipeInput) (*models.Recipe, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeService) LikeRecipe(ctx context.Context, id string) (*types.LikeResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LikeResponse), args.Error(1)
}

func (m *MockRecipeService) StarRecipe(ctx context.Context, id string) (*types.StarResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StarResponse), args.Error(1)
}

func (m *MockRecipeService) AddReview(ctx context.Context, id string, req types.ReviewRequest) (*types.ReviewResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ReviewResponse), args.Error(1)
}

func (m *MockRecipeService) GetStarredRecipes(ctx context.Context) ([]models.Recipe, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recipe), args.Error(1)
}

func (m *MockRecipeService) RecipesCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRecipeService) GetRecipesCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRecipeService) TodayRecipesCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRecipeService) GetTodayRecipesCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRecipeService) RecipeStats(ctx context.Context) (types.RecipeStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.RecipeStats), args.Error(1)
}

func (m *MockRecipeService) GetRecipeStats(ctx context.Context) (types.RecipeStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.RecipeStats), args.Error(1)
}
