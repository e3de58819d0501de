package profile

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrMissingName        = errors.New("profile name is required")
	ErrMissingCredentials = errors.New("provider client credentials are required")
	ErrDuplicateProfile   = errors.New("profile already registered")
)

// ProviderError reports a failed provider round-trip: a non-2xx status or a
// response that is not JSON. The upstream status and body are preserved for
// diagnosability; client credentials never appear here.
type ProviderError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d %s: %s", e.Status, e.StatusText, e.Body)
}
