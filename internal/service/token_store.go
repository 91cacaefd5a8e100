package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key layout for issued tokens: <kind>_token:<user_id>:<token_id>
const (
	accessTokenKeyFormat  = "access_token:%s:%s"
	refreshTokenKeyFormat = "refresh_token:%s:%s"
)

// TokenStore keeps the allow-list of issued JWTs so logout can revoke them.
type TokenStore interface {
	SaveAccess(ctx context.Context, userID uuid.UUID, tokenID string, ttl time.Duration) error
	SaveRefresh(ctx context.Context, userID uuid.UUID, tokenID string, ttl time.Duration) error
	AccessExists(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error)
	RefreshExists(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error)
	RevokeAccess(ctx context.Context, userID uuid.UUID, tokenID string) error
	RevokeRefresh(ctx context.Context, userID uuid.UUID, tokenID string) error
	RevokeAllRefresh(ctx context.Context, userID uuid.UUID) error
}

type redisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) SaveAccess(ctx context.Context, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(accessTokenKeyFormat, userID, tokenID), "valid", ttl).Err()
}

func (s *redisTokenStore) SaveRefresh(ctx context.Context, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(refreshTokenKeyFormat, userID, tokenID), "valid", ttl).Err()
}

func (s *redisTokenStore) AccessExists(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf(accessTokenKeyFormat, userID, tokenID))
}

func (s *redisTokenStore) RefreshExists(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf(refreshTokenKeyFormat, userID, tokenID))
}

func (s *redisTokenStore) exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisTokenStore) RevokeAccess(ctx context.Context, userID uuid.UUID, tokenID string) error {
	return s.client.Del(ctx, fmt.Sprintf(accessTokenKeyFormat, userID, tokenID)).Err()
}

func (s *redisTokenStore) RevokeRefresh(ctx context.Context, userID uuid.UUID, tokenID string) error {
	return s.client.Del(ctx, fmt.Sprintf(refreshTokenKeyFormat, userID, tokenID)).Err()
}

// RevokeAllRefresh drops every refresh token of the user. SCAN keeps Redis responsive on large keyspaces.
func (s *redisTokenStore) RevokeAllRefresh(ctx context.Context, userID uuid.UUID) error {
	pattern := fmt.Sprintf(refreshTokenKeyFormat, userID, "*")
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
