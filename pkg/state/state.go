// Package state issues and validates the anti-CSRF state tokens that guard
// the OAuth2 redirect round-trip (RFC 6749 §10.12). Tokens are random,
// expiring, scoped to a single profile and consumed on first check, so a
// value can never validate twice.
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// DefaultTTL bounds how long a login redirect may sit unanswered before its
// state token expires.
const DefaultTTL = 10 * time.Minute

// Guard is the collaborator contract the flow engine relies on.
// Implementations must be safe for concurrent use and must guarantee
// single-use semantics: after a successful Check the same token fails.
type Guard interface {
	// Generate issues a new state token scoped to the named profile.
	Generate(ctx context.Context, profileName string) (string, error)

	// Check consumes the token. It returns ErrStateMismatch when the token
	// was never issued for this profile, expired, or was already consumed.
	Check(ctx context.Context, profileName, stateToken string) error
}

// newToken returns 32 bytes of randomness in URL-safe base64.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func stateKey(profileName, stateToken string) string {
	return profileName + ":" + stateToken
}
