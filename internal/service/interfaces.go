package service

import (
	"context"
	"net/http"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// Requester is the API client as seen by the services.
type Requester interface {
	Send(ctx context.Context, method, path string, body any, opts ...apiclient.RequestOption) (*apiclient.Response, error)
}

// IAuthService defines the interface for authentication and user operations
type IAuthService interface {
	Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error)
	Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*models.User, error)
	GetUserProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, req types.UpdateProfileRequest) (*models.User, error)
	GetStarredRecipes(ctx context.Context) ([]models.Recipe, error)
	GetUserStats(ctx context.Context) (types.UserStats, error)

	GetAllUsers(ctx context.Context, params types.ListParams) (types.List[models.User], error)
	DeleteUser(ctx context.Context, id string) error
	UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	UsersCount(ctx context.Context) (int, error)
	GetUsersCount(ctx context.Context) (int, error)
	ActiveUsersCount(ctx context.Context) (int, error)
	GetActiveUsersCount(ctx context.Context) (int, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	GetRecipes(ctx context.Context, filter types.RecipeFilter) (types.List[models.Recipe], error)
	GetRecentRecipes(ctx context.Context, limit int) (types.List[models.Recipe], error)
	GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, input *types.RecipeInput) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, input *types.RecipeInput) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	LikeRecipe(ctx context.Context, id string) (*types.LikeResponse, error)
	StarRecipe(ctx context.Context, id string) (*types.StarResponse, error)
	AddReview(ctx context.Context, id string, req types.ReviewRequest) (*types.ReviewResponse, error)
	GetStarredRecipes(ctx context.Context) ([]models.Recipe, error)

	RecipesCount(ctx context.Context) (int, error)
	GetRecipesCount(ctx context.Context) (int, error)
	TodayRecipesCount(ctx context.Context) (int, error)
	GetTodayRecipesCount(ctx context.Context) (int, error)
	RecipeStats(ctx context.Context) (types.RecipeStats, error)
	GetRecipeStats(ctx context.Context) (types.RecipeStats, error)
}

// IMessageService defines the interface for user-to-admin messages
type IMessageService interface {
	SendMessage(ctx context.Context, req *types.MessageRequest) (*models.Message, error)
	GetUserMessages(ctx context.Context) ([]models.Message, error)
	GetAllMessages(ctx context.Context, params types.ListParams) (types.List[models.Message], error)
	MessagesStats(ctx context.Context) (types.MessageStats, error)
	GetMessagesStats(ctx context.Context) (types.MessageStats, error)
	UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error)
	ReplyToMessage(ctx context.Context, id, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// FallbackLimit is the page size used when an aggregate is derived from
// the full collection.
const FallbackLimit = 1000

func getCount(ctx context.Context, c Requester, path string) (int, error) {
	resp, err := c.Send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	var out types.CountResponse
	if err := resp.Decode(&out); err != nil {
		return 0, err
	}
	if out.Count < 0 {
		out.Count = 0
	}
	return out.Count, nil
}
