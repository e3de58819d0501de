// Package tokenstore persists access tokens keyed by (profile, subject).
// The store is the authoritative copy of a token; the signed session cookie
// only carries a snapshot and may go stale after a refresh.
//
// Three implementations ship out of the box: an in-memory store for tests
// and single-instance apps, a Redis store, and a Postgres store. Anything
// satisfying Store can be plugged in instead.
package tokenstore

import (
	"context"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// Store is the collaborator contract consumed by the flow engine.
// Implementations must be safe for concurrent calls keyed by distinct
// (profile, subject) pairs.
type Store interface {
	// Set persists the token for (profileName, subject), replacing any
	// previous value.
	Set(ctx context.Context, profileName, subject string, tok token.AccessToken) error

	// Get retrieves the token or returns ErrTokenNotFound.
	Get(ctx context.Context, profileName, subject string) (token.AccessToken, error)

	// Delete removes the token. Deleting a missing token is not an error.
	Delete(ctx context.Context, profileName, subject string) error
}

func storeKey(profileName, subject string) string {
	return profileName + ":" + subject
}
