package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Difficulty of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Instruction is one numbered preparation step.
type Instruction struct {
	Step int    `json:"step"`
	Text string `json:"text"`
}

// Instructions decodes either step objects or bare strings, numbering the
// latter in order.
type Instructions []Instruction

func (in *Instructions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*in = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Instructions, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var text string
			if err := json.Unmarshal(item, &text); err != nil {
				return err
			}
			out = append(out, Instruction{Step: i + 1, Text: text})
			continue
		}
		var step Instruction
		if err := json.Unmarshal(item, &step); err != nil {
			return err
		}
		if step.Step == 0 {
			step.Step = i + 1
		}
		out = append(out, step)
	}
	*in = out
	return nil
}

// Review is a rating left on exactly one recipe.
type Review struct {
	ID        string    `json:"_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	User      UserRef   `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Recipe as held by the recipe provider. Liked and Starred are relative to
// the session user and must agree with membership in Likes and Stars.
type Recipe struct {
	ID            string       `json:"_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	PrepTime      int          `json:"prepTime"`
	CookTime      int          `json:"cookTime"`
	Servings      int          `json:"servings"`
	Ingredients   []string     `json:"ingredients"`
	Instructions  Instructions `json:"instructions"`
	Tags          []string     `json:"tags"`
	Image         string       `json:"image,omitempty"`
	Author        UserRef      `json:"author"`
	Likes         []UserRef    `json:"likes"`
	Stars         []UserRef    `json:"stars"`
	Liked         bool         `json:"liked"`
	Starred       bool         `json:"starred"`
	Reviews       []Review     `json:"reviews"`
	AverageRating float64      `json:"averageRating"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func (r *Recipe) UnmarshalJSON(data []byte) error {
	type alias Recipe
	aux := struct {
		*alias
		AltID  string   `json:"id"`
		Rating *float64 `json:"rating"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.AltID
	}
	if r.AverageRating == 0 && aux.Rating != nil {
		r.AverageRating = *aux.Rating
	}
	r.RecomputeRating()
	return nil
}

// RecomputeRating sets AverageRating to the mean of the review ratings.
// A nil review list means the server did not embed reviews and the
// server-side average is kept.
func (r *Recipe) RecomputeRating() {
	if r.Reviews == nil {
		return
	}
	if len(r.Reviews) == 0 {
		r.AverageRating = 0
		return
	}
	sum := 0
	for _, rv := range r.Reviews {
		sum += rv.Rating
	}
	r.AverageRating = float64(sum) / float64(len(r.Reviews))
}

// AddReview appends a review and recomputes the average.
func (r *Recipe) AddReview(rv Review) {
	r.Reviews = append(r.Reviews, rv)
	r.RecomputeRating()
}

// DeriveFlags sets Liked and Starred from set membership of userID.
func (r *Recipe) DeriveFlags(userID string) {
	if userID == "" {
		r.Liked, r.Starred = false, false
		return
	}
	r.Liked = containsRef(r.Likes, userID)
	r.Starred = containsRef(r.Stars, userID)
}

// ToggleLike flips Liked and adjusts Likes for the given user.
func (r *Recipe) ToggleLike(user UserRef) {
	r.Liked, r.Likes = toggle(!r.Liked, r.Likes, user)
}

// ToggleStar flips Starred and adjusts Stars for the given user.
func (r *Recipe) ToggleStar(user UserRef) {
	r.Starred, r.Stars = toggle(!r.Starred, r.Stars, user)
}

// ApplyLike stores a server-confirmed like state, keeping membership of
// user consistent with liked.
func (r *Recipe) ApplyLike(liked bool, likes []UserRef, user UserRef) {
	r.Liked, r.Likes = toggle(liked, likes, user)
}

// ApplyStar is ApplyLike for stars.
func (r *Recipe) ApplyStar(starred bool, stars []UserRef, user UserRef) {
	r.Starred, r.Stars = toggle(starred, stars, user)
}

func toggle(on bool, set []UserRef, user UserRef) (bool, []UserRef) {
	if on {
		if !containsRef(set, user.ID) {
			set = append(slices.Clone(set), user)
		}
		return true, set
	}
	return false, withoutRef(set, user.ID)
}

// HasLike reports whether userID is in Likes.
func (r *Recipe) HasLike(userID string) bool { return containsRef(r.Likes, userID) }

// HasStar reports whether userID is in Stars.
func (r *Recipe) HasStar(userID string) bool { return containsRef(r.Stars, userID) }

// Clone returns a deep copy suitable for rollback snapshots.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Ingredients = slices.Clone(r.Ingredients)
	c.Instructions = slices.Clone(r.Instructions)
	c.Tags = slices.Clone(r.Tags)
	c.Likes = slices.Clone(r.Likes)
	c.Stars = slices.Clone(r.Stars)
	c.Reviews = slices.Clone(r.Reviews)
	return &c
}
