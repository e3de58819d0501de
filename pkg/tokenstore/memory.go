package tokenstore

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// MemoryStore keeps tokens in process memory. Tokens are stored without a
// TTL: an expired access token still carries the refresh_token needed to
// renew it, so eviction is left to Delete.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Set(_ context.Context, profileName, subject string, tok token.AccessToken) error {
	s.cache.Set(storeKey(profileName, subject), tok, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, profileName, subject string) (token.AccessToken, error) {
	v, ok := s.cache.Get(storeKey(profileName, subject))
	if !ok {
		return token.AccessToken{}, ErrTokenNotFound
	}
	return v.(token.AccessToken), nil
}

func (s *MemoryStore) Delete(_ context.Context, profileName, subject string) error {
	s.cache.Delete(storeKey(profileName, subject))
	return nil
}
