package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/shinker1002/seb40-main-019/internal/storage"
	"github.com/shinker1002/seb40-main-019/pkg/httpclient"
)

const serviceName = "media-service"

// ownerType is the media service owner type used for review images.
const ownerType = "user"

// Client implements storage.ImageStore on top of the media service HTTP API.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
}

// New creates a media service client.
func New(baseURL string, http *httpclient.CircuitBreakerClient) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http}
}

type mediaFile struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type mediaResponse struct {
	Data mediaFile `json:"data"`
}

// Upload posts the image as a multipart form. The whole body is buffered
// so that retries can rewind it.
func (c *Client) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("owner_type", ownerType); err != nil {
		return nil, fmt.Errorf("write owner_type: %w", err)
	}
	if err := mw.WriteField("owner_id", strconv.FormatInt(input.OwnerID, 10)); err != nil {
		return nil, fmt.Errorf("write owner_id: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName(input.FileName)))
	h.Set("Content-Type", input.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, input.Data); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/media", &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var out mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.Data.URL == "" {
		return nil, fmt.Errorf("%s: upload response has no url", serviceName)
	}

	return &storage.UploadResult{Key: out.Data.ID, URL: out.Data.URL}, nil
}

// Delete removes the image behind rawURL. The media service ends every
// file URL with the media id.
func (c *Client) Delete(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse image url: %w", err)
	}
	id := path.Base(u.Path)
	if id == "." || id == "/" {
		return fmt.Errorf("image url %q has no media id", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/media/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

func fileName(name string) string {
	if name == "" {
		return "image"
	}
	return path.Base(name)
}
