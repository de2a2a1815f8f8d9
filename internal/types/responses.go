package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pageza/recipehub/internal/models"
)

// AuthResponse is returned by login, register and /auth/me.
type AuthResponse struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user"`
}

// CountResponse decodes either a bare number or an object carrying
// count or total.
type CountResponse struct {
	Count int `json:"count"`
}

func (c *CountResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("failed to decode count: %w", err)
		}
		c.Count = int(n)
		return nil
	}
	var aux struct {
		Count *float64 `json:"count"`
		Total *float64 `json:"total"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Count != nil:
		c.Count = int(*aux.Count)
	case aux.Total != nil:
		c.Count = int(*aux.Total)
	default:
		return fmt.Errorf("count missing from response")
	}
	return nil
}

// RecipeStats is the payload of /recipes/stats.
type RecipeStats struct {
	TotalLikes    int     `json:"totalLikes"`
	AverageRating float64 `json:"averageRating"`
	TotalRecipes  int     `json:"totalRecipes"`
}

// MessageStats is the payload of /messages/stats.
type MessageStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Replied int `json:"replied"`
	Read    int `json:"read"`
}

// UserStats is the payload of /users/stats.
type UserStats struct {
	TotalRecipesCreated int `json:"totalRecipesCreated"`
	TotalReviews        int `json:"totalReviews"`
	WeeklyActivity      int `json:"weeklyActivity"`
	RecipesViewed       int `json:"recipesViewed"`
}

// LikeResponse is the server state after a like toggle.
type LikeResponse struct {
	Likes []models.UserRef `json:"likes"`
	Liked bool             `json:"liked"`
}

// StarResponse is the server state after a star toggle.
type StarResponse struct {
	Stars   []models.UserRef `json:"stars"`
	Starred bool             `json:"starred"`
}

// ReviewResponse carries whatever the review endpoint returned: the
// created review, the updated recipe, or both.
type ReviewResponse struct {
	Review *models.Review `json:"review,omitempty"`
	Recipe *models.Recipe `json:"recipe,omitempty"`
}

func (r *ReviewResponse) UnmarshalJSON(data []byte) error {
	type alias ReviewResponse
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Review == nil && aux.Recipe == nil {
		// bare recipe or bare review
		var probe struct {
			Title  *string `json:"title"`
			Rating *int    `json:"rating"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		switch {
		case probe.Title != nil:
			aux.Recipe = &models.Recipe{}
			if err := json.Unmarshal(data, aux.Recipe); err != nil {
				return err
			}
		case probe.Rating != nil:
			aux.Review = &models.Review{}
			if err := json.Unmarshal(data, aux.Review); err != nil {
				return err
			}
		}
	}
	*r = ReviewResponse(aux)
	return nil
}

// List is a decoded collection page. Total is the server total when the
// envelope carried one, otherwise the length of Items.
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
