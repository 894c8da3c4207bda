package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/storage"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
	"github.com/shinker1002/seb40-main-019/pkg/httputil"
	"github.com/shinker1002/seb40-main-019/pkg/middleware"
	"github.com/shinker1002/seb40-main-019/pkg/validator"
)

// Multipart part names for review requests.
const (
	requestPart = "request"
	imagePart   = "image"
)

// upload is an image part of a multipart request.
type upload struct {
	input *storage.UploadInput
	file  multipart.File
}

func (u *upload) Close() {
	if u != nil && u.file != nil {
		_ = u.file.Close()
	}
}

// decodeWithImage decodes dst from a JSON body, or from the "request" part
// of a multipart form whose optional "image" part is returned as an upload.
func decodeWithImage(w http.ResponseWriter, r *http.Request, dst any, maxImageBytes int64) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return nil, validator.DecodeAndValidate(w, r, dst)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+validator.MaxBodyBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, apperrors.InvalidInput("failed to parse multipart form: " + err.Error())
	}

	if raw := r.FormValue(requestPart); raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return nil, apperrors.InvalidInput("invalid request part: " + err.Error())
		}
	}
	if err := validator.Validate(dst); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile(imagePart)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.InvalidInput("invalid image part: " + err.Error())
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &upload{
		input: &storage.UploadInput{
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Data:        file,
		},
		file: file,
	}, nil
}

func (u *upload) uploadInput() *storage.UploadInput {
	if u == nil {
		return nil
	}
	return u.input
}

// writeRequestError renders a decode or validation failure.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		httputil.WriteError(w, r, err, logger)
		return
	}
	httputil.WriteValidationError(w, err)
}

// currentUserID returns the authenticated principal or writes a 401.
func currentUserID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, domain.ErrAuthenticationRequired, logger)
		return 0, false
	}
	return id, true
}

// pageParams reads page and size with the review paging defaults.
func pageParams(r *http.Request) (int, int) {
	return httputil.PageParams(r, domain.DefaultPageSize, domain.MaxPageSize)
}
