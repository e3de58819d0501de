package config

import "errors"

var (
	ErrNilPointer      = errors.New("config target must be a non-nil pointer")
	ErrParsingConfig   = errors.New("failed to parse config from environment")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingEndpoint = errors.New("custom provider requires auth_url and token_url")
)
