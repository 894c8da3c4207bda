package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shinker1002/seb40-main-019/internal/storage"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

type fileEntry struct {
	Key         string
	ContentType string
	Size        int64
}

// Store implements storage.ImageStore with an in-memory map. Only metadata
// is kept; image bytes are discarded.
type Store struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates an in-memory store serving URLs under baseURL.
func New(baseURL string) *Store {
	return &Store{
		files:   make(map[string]*fileEntry),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Store) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key := storage.NewKey(input.OwnerID)

	s.mu.Lock()
	s.files[key] = &fileEntry{Key: key, ContentType: input.ContentType, Size: input.Size}
	s.mu.Unlock()

	return &storage.UploadResult{Key: key, URL: s.url(key)}, nil
}

func (s *Store) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/media/")
	if !ok {
		return apperrors.InvalidInput(fmt.Sprintf("url %q is not served by this store", url))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return apperrors.NotFound("image", key)
	}
	delete(s.files, key)
	return nil
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

func (s *Store) url(key string) string {
	return fmt.Sprintf("%s/media/%s", s.baseURL, key)
}
