package flow

import (
	"context"
	"net/http"
)

type sessionCtxKey struct{}

// Middleware attaches the per-request Session to the request context so
// downstream handlers can query authorization state.
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), sessionCtxKey{}, s.Session(w, r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext recovers the Session placed by Middleware.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return sess, ok
}
