package flow

import "errors"

var (
	ErrMissingSessionSecret = errors.New("session secret is required")
	ErrMissingRegistry      = errors.New("profile registry is required")
	ErrMissingStateGuard    = errors.New("state guard is required")
	ErrMissingTokenStore    = errors.New("token store is required")

	// ErrInvalidSession covers every way a session cookie fails
	// verification: bad signature, wrong algorithm, malformed payload.
	ErrInvalidSession = errors.New("invalid session cookie")
)
