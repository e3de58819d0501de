package state

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryGuard keeps issued state tokens in an expiring in-process cache.
// Suitable for single-instance deployments; use RedisGuard behind a load
// balancer so the callback can land on any instance.
type MemoryGuard struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryGuard creates a guard whose tokens expire after ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{cache: cache.New(ttl, ttl)}
}

// Generate issues a token scoped to the named profile.
func (g *MemoryGuard) Generate(_ context.Context, profileName string) (string, error) {
	tok, err := newToken()
	if err != nil {
		return "", err
	}
	g.cache.Set(stateKey(profileName, tok), struct{}{}, cache.DefaultExpiration)
	return tok, nil
}

// Check consumes the token. The lookup and delete happen under one lock so
// two concurrent callbacks cannot both pass with the same token.
func (g *MemoryGuard) Check(_ context.Context, profileName, stateToken string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := stateKey(profileName, stateToken)
	if _, ok := g.cache.Get(key); !ok {
		return ErrStateMismatch
	}
	g.cache.Delete(key)
	return nil
}
