package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/types"
)

// ActiveWindow is how recently a user must have logged in to count as active.
const ActiveWindow = 24 * time.Hour

// AuthService handles authentication, the current user and admin user management
type AuthService struct {
	client  Requester
	session *session.Session
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(client Requester, sess *session.Session, log *zap.Logger) *AuthService {
	return &AuthService{
		client:  client,
		session: sess,
		logger:  logger.OrNop(log).Named("auth"),
		now:     time.Now,
	}
}

// Login authenticates and persists the token and user snapshot.
func (s *AuthService) Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	return s.authenticate(ctx, "/auth/login", req)
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	return s.authenticate(ctx, "/auth/register", req)
}

func (s *AuthService) authenticate(ctx context.Context, path string, body any) (*types.AuthResponse, error) {
	resp, err := s.client.Send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var out types.AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, &apiclient.APIError{Kind: apiclient.KindServer, Status: resp.Status, Message: "Unexpected response from server", Err: err}
	}
	if out.Token == "" || out.User == nil {
		return nil, &apiclient.APIError{Kind: apiclient.KindServer, Status: resp.Status, Message: "Unexpected response from server"}
	}
	if err := s.session.Save(ctx, out.Token, out.User); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.logger.Info("signed in", zap.String("user_id", out.User.ID), zap.String("role", string(out.User.Role)))
	return &out, nil
}

// Logout clears the persisted session. No request is made.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.Clear(ctx)
}

// GetCurrentUser fetches /auth/me and refreshes the cached snapshot.
func (s *AuthService) GetCurrentUser(ctx context.Context) (*models.User, error) {
	user, err := s.fetchUser(ctx, "/auth/me")
	if err != nil {
		return nil, err
	}
	if err := s.session.SetUser(ctx, user); err != nil {
		s.logger.Warn("failed to cache current user", zap.Error(err))
	}
	return user, nil
}

// GetUserProfile fetches the signed-in user's profile.
func (s *AuthService) GetUserProfile(ctx context.Context) (*models.User, error) {
	return s.fetchUser(ctx, "/users/profile")
}

// UpdateProfile saves profile changes and refreshes the cached user.
func (s *AuthService) UpdateProfile(ctx context.Context, req types.UpdateProfileRequest) (*models.User, error) {
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	resp, err := s.client.Send(ctx, http.MethodPut, "/users/profile", req)
	if err != nil {
		return nil, err
	}
	user, err := apiclient.DecodeItem[models.User](resp, "user", "data")
	if err != nil {
		return nil, err
	}
	if err := s.session.SetUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to cache updated user: %w", err)
	}
	return user, nil
}

// GetStarredRecipes lists the recipes the signed-in user starred.
func (s *AuthService) GetStarredRecipes(ctx context.Context) ([]models.Recipe, error) {
	return starredRecipes(ctx, s.client)
}

// GetUserStats returns activity counters, all zero when the endpoint is
// missing or failing.
func (s *AuthService) GetUserStats(ctx context.Context) (types.UserStats, error) {
	stats, _, err := FirstSuccess(ctx, s.logger, "user_stats",
		Source[types.UserStats]{Name: "endpoint", Fetch: func(ctx context.Context) (types.UserStats, error) {
			resp, err := s.client.Send(ctx, http.MethodGet, "/users/stats", nil)
			if err != nil {
				return types.UserStats{}, err
			}
			var out types.UserStats
			if err := resp.Decode(&out); err != nil {
				return types.UserStats{}, err
			}
			return out, nil
		}},
		Source[types.UserStats]{Name: "defaults", Fetch: func(context.Context) (types.UserStats, error) {
			return types.UserStats{}, nil
		}},
	)
	return stats, err
}

// GetAllUsers lists users (admin).
func (s *AuthService) GetAllUsers(ctx context.Context, params types.ListParams) (types.List[models.User], error) {
	resp, err := s.client.Send(ctx, http.MethodGet, "/users", nil, apiclient.WithQuery(params.Query()))
	if err != nil {
		return types.List[models.User]{}, err
	}
	return apiclient.DecodeList[models.User](resp, "users")
}

// DeleteUser removes a user (admin).
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	_, err := s.client.Send(ctx, http.MethodDelete, "/users/"+id, nil)
	return err
}

// UpdateUserRole changes a user's role (admin).
func (s *AuthService) UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	req := types.RoleRequest{Role: role}
	if err := types.Validate(req); err != nil {
		return nil, apiclient.ValidationFailed(err)
	}
	resp, err := s.client.Send(ctx, http.MethodPut, "/users/"+id+"/role", req)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.User](resp, "user", "data")
}

// UsersCount calls the dedicated count endpoint only.
func (s *AuthService) UsersCount(ctx context.Context) (int, error) {
	return getCount(ctx, s.client, "/users/count")
}

// GetUsersCount prefers the count endpoint and falls back to the length of
// the user list.
func (s *AuthService) GetUsersCount(ctx context.Context) (int, error) {
	n, _, err := FirstSuccess(ctx, s.logger, "users_count",
		Source[int]{Name: "endpoint", Fetch: s.UsersCount},
		Source[int]{Name: "list", Fetch: func(ctx context.Context) (int, error) {
			users, err := s.GetAllUsers(ctx, types.ListParams{Limit: FallbackLimit})
			if err != nil {
				return 0, err
			}
			return users.Total, nil
		}},
	)
	return n, err
}

// ActiveUsersCount calls the dedicated active-count endpoint only.
func (s *AuthService) ActiveUsersCount(ctx context.Context) (int, error) {
	return getCount(ctx, s.client, "/users/active-count")
}

// GetActiveUsersCount prefers the endpoint and falls back to counting users
// who logged in within ActiveWindow.
func (s *AuthService) GetActiveUsersCount(ctx context.Context) (int, error) {
	n, _, err := FirstSuccess(ctx, s.logger, "active_users_count",
		Source[int]{Name: "endpoint", Fetch: s.ActiveUsersCount},
		Source[int]{Name: "list", Fetch: func(ctx context.Context) (int, error) {
			users, err := s.GetAllUsers(ctx, types.ListParams{Limit: FallbackLimit})
			if err != nil {
				return 0, err
			}
			return CountActive(users.Items, s.now()), nil
		}},
	)
	return n, err
}

// CountActive counts users whose last login falls within ActiveWindow of now.
func CountActive(users []models.User, now time.Time) int {
	since := now.Add(-ActiveWindow)
	n := 0
	for i := range users {
		if users[i].ActiveSince(since) {
			n++
		}
	}
	return n
}

func (s *AuthService) fetchUser(ctx context.Context, path string) (*models.User, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeItem[models.User](resp, "user", "data")
}

func starredRecipes(ctx context.Context, c Requester) ([]models.Recipe, error) {
	resp, err := c.Send(ctx, http.MethodGet, "/users/starred", nil)
	if err != nil {
		return nil, err
	}
	list, err := apiclient.DecodeList[models.Recipe](resp, "recipes", "starredRecipes", "starred")
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}
