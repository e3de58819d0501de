package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "oauthflow:state:"

// RedisGuard stores state tokens in Redis so any instance behind a load
// balancer can validate a callback. Consumption uses GETDEL, which is atomic
// on the server and therefore safe under concurrent callbacks.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisGuard wraps an established Redis client. A non-positive ttl falls
// back to DefaultTTL.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// Generate issues a token scoped to the named profile.
func (g *RedisGuard) Generate(ctx context.Context, profileName string) (string, error) {
	tok, err := newToken()
	if err != nil {
		return "", err
	}
	if err := g.client.Set(ctx, redisKeyPrefix+stateKey(profileName, tok), "1", g.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store state token: %w", err)
	}
	return tok, nil
}

// Check consumes the token.
func (g *RedisGuard) Check(ctx context.Context, profileName, stateToken string) error {
	err := g.client.GetDel(ctx, redisKeyPrefix+stateKey(profileName, stateToken)).Err()
	if errors.Is(err, redis.Nil) {
		return ErrStateMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to check state token: %w", err)
	}
	return nil
}
