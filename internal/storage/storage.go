package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// Content types accepted for review images.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// UploadInput holds the data needed to store a review image.
type UploadInput struct {
	OwnerID     int64
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ImageStore keeps review images. Reviews only remember the returned URL,
// so Delete is addressed by URL.
type ImageStore interface {
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, url string) error
}

// ValidateImage checks the content type and size of an upload.
func ValidateImage(input *UploadInput, maxBytes int64) error {
	if !allowedContentTypes[input.ContentType] {
		return apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed", input.ContentType))
	}
	if input.Size <= 0 {
		return apperrors.InvalidInput("image is empty")
	}
	if maxBytes > 0 && input.Size > maxBytes {
		return apperrors.InvalidInput(fmt.Sprintf("image exceeds %d bytes", maxBytes))
	}
	return nil
}

// NewKey returns a unique object key for an image owned by ownerID.
func NewKey(ownerID int64) string {
	return fmt.Sprintf("reviews/%d/%s", ownerID, uuid.NewString())
}
