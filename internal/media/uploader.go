package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/types"
)

// MaxImageSize is the largest attachment accepted.
const MaxImageSize = 5 << 20

// Folders for uploaded attachments.
const (
	FolderRecipes  = "recipe-images"
	FolderMessages = "message-images"
)

var (
	ErrEmptyFile    = errors.New("image is empty")
	ErrFileTooLarge = errors.New("image exceeds 5MB")
	ErrNotAnImage   = errors.New("file is not an image")
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, file *types.FileUpload) (string, error)
}

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts images into a bucket under a random key.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	logger *zap.Logger
}

// NewS3Uploader returns nil when cfg is nil so callers fall back to
// sending the file to the API directly.
func NewS3Uploader(cfg *config.S3Config, log *zap.Logger) *S3Uploader {
	if cfg == nil {
		return nil
	}
	return NewS3UploaderWithClient(cfg.Client, cfg.BucketName, log)
}

// NewS3UploaderWithClient builds an uploader around any PutObject implementation.
func NewS3UploaderWithClient(client PutObjectAPI, bucket string, log *zap.Logger) *S3Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Uploader{client: client, bucket: bucket, logger: log.Named("media")}
}

// Upload validates file and puts it at folder/<uuid><ext>.
func (u *S3Uploader) Upload(ctx context.Context, folder string, file *types.FileUpload) (string, error) {
	contentType, err := Check(file)
	if err != nil {
		return "", err
	}

	key := path.Join(folder, uuid.New().String()+extension(file.Name, contentType))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
	u.logger.Info("uploaded image", zap.String("url", publicURL), zap.Int("bytes", len(file.Data)))
	return publicURL, nil
}

// Check validates an attachment and returns its content type, sniffing
// the data when none was declared.
func Check(file *types.FileUpload) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", ErrEmptyFile
	}
	if len(file.Data) > MaxImageSize {
		return "", ErrFileTooLarge
	}
	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(file.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}
	return contentType, nil
}

func extension(name, contentType string) string {
	if ext := path.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
