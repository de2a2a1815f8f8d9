package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeDecodeMixedShapes(t *testing.T) {
	body := `{
		"_id": "r1",
		"title": "Shakshuka",
		"author": {"_id": "u9", "name": "Mira"},
		"likes": ["u1", {"_id": "u2", "name": "Tom"}],
		"stars": [],
		"instructions": ["Heat oil", {"step": 5, "text": "Add eggs"}],
		"reviews": [{"rating": 4, "user": "u1"}, {"rating": 5, "user": "u2"}],
		"averageRating": 1.0
	}`

	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(body), &r))

	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "Mira", r.Author.Name)
	require.Len(t, r.Likes, 2)
	assert.Equal(t, "u1", r.Likes[0].ID)
	assert.Equal(t, "Tom", r.Likes[1].Name)
	assert.Equal(t, Instructions{{Step: 1, Text: "Heat oil"}, {Step: 5, Text: "Add eggs"}}, r.Instructions)
	// the client never trusts a server average when reviews are embedded
	assert.InDelta(t, 4.5, r.AverageRating, 1e-9)
}

func TestRecipeDecodeKeepsServerAverageWithoutReviews(t *testing.T) {
	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(`{"id": "r2", "rating": 3.5}`), &r))
	assert.Equal(t, "r2", r.ID)
	assert.Nil(t, r.Reviews)
	assert.Equal(t, 3.5, r.AverageRating)

	var empty Recipe
	require.NoError(t, json.Unmarshal([]byte(`{"_id": "r3", "averageRating": 4, "reviews": []}`), &empty))
	assert.Equal(t, 0.0, empty.AverageRating)
}

func TestToggleLikeKeepsMembershipConsistent(t *testing.T) {
	r := &Recipe{ID: "r1"}
	u := UserRef{ID: "u1"}

	r.ToggleLike(u)
	assert.True(t, r.Liked)
	assert.True(t, r.HasLike("u1"))

	r.ToggleLike(u)
	assert.False(t, r.Liked)
	assert.False(t, r.HasLike("u1"))
	assert.Empty(t, r.Likes)
}

func TestApplyLikeRepairsMembership(t *testing.T) {
	r := &Recipe{ID: "r1"}
	u := UserRef{ID: "u1"}

	r.ApplyLike(true, nil, u)
	assert.True(t, r.HasLike("u1"))

	r.ApplyLike(false, []UserRef{{ID: "u1"}, {ID: "u2"}}, u)
	assert.False(t, r.HasLike("u1"))
	assert.True(t, r.HasLike("u2"))
}

func TestCloneIsIndependent(t *testing.T) {
	r := &Recipe{ID: "r1", Likes: []UserRef{{ID: "u1"}}, Reviews: []Review{{Rating: 5}}}
	c := r.Clone()
	c.ToggleLike(UserRef{ID: "u2"})
	c.AddReview(Review{Rating: 1})

	assert.Len(t, r.Likes, 1)
	assert.Len(t, r.Reviews, 1)
	assert.Equal(t, 3.0, c.AverageRating)
}

func TestDeriveFlags(t *testing.T) {
	r := &Recipe{Likes: []UserRef{{ID: "u1"}}, Stars: []UserRef{{ID: "u2"}}}
	r.DeriveFlags("u1")
	assert.True(t, r.Liked)
	assert.False(t, r.Starred)

	r.DeriveFlags("")
	assert.False(t, r.Liked)
}

func TestUserRefMarshalsBareID(t *testing.T) {
	out, err := json.Marshal([]UserRef{{ID: "u1"}, {ID: "u2", Name: "Tom"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["u1", {"_id": "u2", "name": "Tom"}]`, string(out))
}
