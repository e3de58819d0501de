package state

import "errors"

var (
	// ErrStateMismatch is the CSRF failure: the callback's state was never
	// issued, expired, or was already consumed. Callers must abort the flow
	// before any token exchange.
	ErrStateMismatch = errors.New("state token mismatch")
)
