package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pageza/recipehub/internal/types"
)

// Kind classifies a failed request.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindCanceled     Kind = "canceled"
)

// APIError is returned for every failed Send. Message is safe to show to a
// user; Fields carries per-field messages for validation failures.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// UserMessage returns Message or a generic text for the kind.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNetwork:
		return "Unable to reach the server. Check your connection and try again."
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindNotFound:
		return "The requested item was not found."
	case KindValidation:
		return "Some fields are invalid."
	case KindCanceled:
		return "The request was canceled."
	default:
		return "Something went wrong. Please try again."
	}
}

// ValidationFailed wraps locally detected input errors so callers handle
// them like a 4xx from the server.
func ValidationFailed(err error) *APIError {
	apiErr := &APIError{Kind: KindValidation, Status: http.StatusBadRequest, Err: err}
	var fields types.FieldErrors
	if errors.As(err, &fields) {
		apiErr.Fields = fields
		apiErr.Message = fields.Error()
	} else {
		apiErr.Message = err.Error()
	}
	return apiErr
}

// KindOf returns the kind of err, or "" when err is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return ""
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNetwork(err error) bool      { return KindOf(err) == KindNetwork }
func IsServer(err error) bool       { return KindOf(err) == KindServer }
func IsCanceled(err error) bool     { return KindOf(err) == KindCanceled }

// UserMessage extracts a displayable message from any error.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
