package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

const redisKeyPrefix = "oauthflow:token:"

// RedisStore persists tokens as JSON values in Redis, so every instance
// behind a load balancer sees the same authoritative copy.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, profileName, subject string, tok token.AccessToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+storeKey(profileName, subject), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, profileName, subject string) (token.AccessToken, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+storeKey(profileName, subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return token.AccessToken{}, ErrTokenNotFound
	}
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to load token: %w", err)
	}

	var tok token.AccessToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to decode token: %w", err)
	}
	return tok, nil
}

func (s *RedisStore) Delete(ctx context.Context, profileName, subject string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+storeKey(profileName, subject)).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
