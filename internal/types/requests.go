package types

import (
	"net/url"
	"strconv"

	"github.com/pageza/recipehub/internal/models"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest is the body of PUT /users/profile. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=120"`
	Avatar   *string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// ReviewRequest is the body of POST /recipes/:id/reviews.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// FileUpload is an image attached to a recipe or message.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// RecipeInput carries the fields of a recipe create or update.
type RecipeInput struct {
	Title        string               `json:"title" validate:"required,max=200"`
	Description  string               `json:"description" validate:"required"`
	Category     string               `json:"category" validate:"required"`
	Difficulty   models.Difficulty    `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	PrepTime     int                  `json:"prepTime" validate:"gte=0"`
	CookTime     int                  `json:"cookTime" validate:"gte=0"`
	Servings     int                  `json:"servings" validate:"gte=1"`
	Ingredients  []string             `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions []models.Instruction `json:"instructions" validate:"required,min=1,dive"`
	Tags         []string             `json:"tags"`
	ImageURL     string               `json:"image,omitempty" validate:"omitempty,url"`
	Image        *FileUpload          `json:"-"`
}

// MessageRequest is the body of POST /messages.
type MessageRequest struct {
	Type     models.MessageType `json:"type" validate:"required,oneof=suggestion feedback review question"`
	Title    string             `json:"title" validate:"required,max=200"`
	Content  string             `json:"content" validate:"required,max=5000"`
	ImageURL string             `json:"image,omitempty" validate:"omitempty,url"`
	Image    *FileUpload        `json:"-"`
}

// MessageStatusRequest is the body of PUT /messages/:id/status.
type MessageStatusRequest struct {
	Status models.MessageStatus `json:"status" validate:"required,oneof=pending read replied"`
}

// ReplyRequest is the body of POST /messages/:id/reply.
type ReplyRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// RoleRequest is the body of PUT /users/:id/role.
type RoleRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=user admin"`
}

// RecipeFilter selects recipes from GET /recipes.
type RecipeFilter struct {
	Search     string `form:"search"`
	Category   string `form:"category"`
	Difficulty string `form:"difficulty"`
	Tag        string `form:"tag"`
	Sort       string `form:"sort"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

// Query encodes the filter as query parameters, omitting zero values.
func (f RecipeFilter) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("category", f.Category)
	set("difficulty", f.Difficulty)
	set("tag", f.Tag)
	set("sort", f.Sort)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// ListParams pages the admin user and message listings.
type ListParams struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
}

// Query encodes the params, omitting zero values.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}
