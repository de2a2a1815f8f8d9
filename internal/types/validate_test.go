package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/models"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(RegisterRequest{Name: "", Email: "nope", Password: "123"})
	require.Error(t, err)

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
}

func TestValidateReviewRating(t *testing.T) {
	assert.NoError(t, Validate(ReviewRequest{Rating: 5}))

	err := Validate(ReviewRequest{Rating: 6})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "rating")
}

func TestValidateMessageType(t *testing.T) {
	err := Validate(MessageRequest{Type: "complaint", Title: "t", Content: "c"})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "must be one of: suggestion feedback review question", fields["type"])

	assert.NoError(t, Validate(MessageRequest{Type: models.MessageQuestion, Title: "t", Content: "c"}))
}

func TestRecipeFilterQueryOmitsZeroValues(t *testing.T) {
	q := RecipeFilter{Category: "Dinner", Limit: 20}.Query()
	assert.Equal(t, "category=Dinner&limit=20", q.Encode())
}

func TestCountResponseShapes(t *testing.T) {
	for body, want := range map[string]int{
		`12`:            12,
		`{"count": 3}`:  3,
		`{"total": 41}`: 41,
	} {
		var c CountResponse
		require.NoError(t, c.UnmarshalJSON([]byte(body)), body)
		assert.Equal(t, want, c.Count, body)
	}

	var c CountResponse
	assert.Error(t, c.UnmarshalJSON([]byte(`{"users": []}`)))
}

func TestReviewResponseShapes(t *testing.T) {
	var bare ReviewResponse
	require.NoError(t, bare.UnmarshalJSON([]byte(`{"_id": "r1", "title": "Soup", "reviews": [{"rating": 4}]}`)))
	require.NotNil(t, bare.Recipe)
	assert.Equal(t, 4.0, bare.Recipe.AverageRating)

	var review ReviewResponse
	require.NoError(t, review.UnmarshalJSON([]byte(`{"rating": 2, "comment": "meh"}`)))
	require.NotNil(t, review.Review)
	assert.Equal(t, 2, review.Review.Rating)
}
