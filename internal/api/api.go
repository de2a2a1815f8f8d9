package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/media"
	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/types"
)

// fail hands err to middleware.ErrorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// badRequest reports an undecodable body as a validation failure.
func badRequest(c *gin.Context, err error) {
	fail(c, apiclient.ValidationFailed(fmt.Errorf("invalid request body: %w", err)))
}

func viewerID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formFile reads the optional image part of a multipart request.
func formFile(c *gin.Context, field string) (*types.FileUpload, error) {
	fh, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > media.MaxImageSize {
		return nil, media.ErrFileTooLarge
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (*types.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &types.FileUpload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

// jsonField decodes a form field holding a JSON array, accepting a single
// bare value as a one-element list.
func jsonField[T any](c *gin.Context, name string, out *[]T) error {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	var one T
	if err := json.Unmarshal([]byte(raw), &one); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*out = []T{one}
	return nil
}
