// Package logger provides slog attribute helpers with the canonical keys
// used across the kit, so log output stays greppable.
package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Profile records the profile name under the key "profile".
func Profile(name string) slog.Attr {
	return slog.String("profile", name)
}

// Subject records the token subject under the key "subject".
func Subject(id string) slog.Attr {
	return slog.String("subject", id)
}

// Status records an upstream HTTP status code under the key "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}
