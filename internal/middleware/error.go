package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/dashboard"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/state"
	"github.com/pageza/recipehub/internal/types"
)

// ErrorResponse is the body of every error answered by the gateway.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// StatusFor maps an error to the status the gateway answers with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrMutationPending):
		return http.StatusConflict
	case errors.Is(err, state.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrAllSourcesFailed):
		return http.StatusBadGateway
	}

	var fields types.FieldErrors
	if errors.As(err, &fields) {
		return http.StatusBadRequest
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case apiclient.KindUnauthorized:
		return http.StatusUnauthorized
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindValidation:
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadRequest
	case apiclient.KindCanceled:
		return 499
	default:
		return http.StatusBadGateway
	}
}

// Render builds the response body for err.
func Render(err error) ErrorResponse {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return ErrorResponse{Error: apiErr.UserMessage(), Kind: string(apiErr.Kind), Fields: apiErr.Fields}
	}
	var fields types.FieldErrors
	if errors.As(err, &fields) {
		return ErrorResponse{Error: fields.Error(), Kind: string(apiclient.KindValidation), Fields: fields}
	}
	if StatusFor(err) == http.StatusInternalServerError {
		return ErrorResponse{Error: "Internal Server Error"}
	}
	return ErrorResponse{Error: err.Error()}
}

// ErrorHandler recovers panics and renders the last error a handler
// attached with c.Error, unless a response was already written.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log).Named("http")
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic while serving request", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Warn("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		}
		c.JSON(status, Render(err))
	}
}
