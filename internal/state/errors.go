package state

import (
	"errors"

	"github.com/pageza/recipehub/internal/apiclient"
)

var (
	// ErrMutationPending is returned when a like, star, review, update or
	// delete is requested while another one is in flight for the same recipe.
	ErrMutationPending = errors.New("a change to this recipe is already in progress")
	// ErrRecipeNotFound is returned for mutations on recipes not held locally.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrNotAuthenticated is returned for mutations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned by a fetch whose result was discarded because
	// a newer fetch started or the provider was detached.
	ErrSuperseded = errors.New("result superseded")
)

// messageOr returns the server-provided message of err, or fallback.
func messageOr(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
