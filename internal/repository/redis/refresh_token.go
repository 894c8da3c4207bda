package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

const (
	keyPrefix      = "refresh_token:"
	deleteBatchLen = 500
)

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// RefreshTokenStore implements repository.RefreshTokenStore using Redis.
// Each record expires with its token, so an expired record counts as absent.
type RefreshTokenStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRefreshTokenStore creates a new Redis-backed refresh token store.
func NewRefreshTokenStore(client *redis.Client) *RefreshTokenStore {
	return &RefreshTokenStore{
		client: client,
		now:    time.Now,
	}
}

// Save replaces the record of rec.UserID.
func (s *RefreshTokenStore) Save(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	now := s.now()
	if rec.Expired(now) {
		return apperrors.InvalidInput("refresh token already expired")
	}
	ttl := rec.ExpiresAt.Sub(now)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	if err := s.client.Set(ctx, key(rec.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

// Delete removes the record in a single DEL and reports whether it existed.
func (s *RefreshTokenStore) Delete(ctx context.Context, userID int64) (bool, error) {
	n, err := s.client.Del(ctx, key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del refresh token: %w", err)
	}
	return n > 0, nil
}

// DeleteMany removes the records of userIDs.
func (s *RefreshTokenStore) DeleteMany(ctx context.Context, userIDs []int64) error {
	for start := 0; start < len(userIDs); start += deleteBatchLen {
		end := min(start+deleteBatchLen, len(userIDs))

		keys := make([]string, 0, end-start)
		for _, id := range userIDs[start:end] {
			keys = append(keys, key(id))
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del refresh tokens: %w", err)
		}
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RefreshTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
