package flow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/oauthflow/pkg/cookie"
	"github.com/dmitrymomot/oauthflow/pkg/logger"
	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// sessionClaims wraps the token snapshot in a signed JWT. The JWT exp
// mirrors the token's own expiry.
type sessionClaims struct {
	Token map[string]any `json:"tok"`
	jwt.RegisteredClaims
}

// signSession signs a verified token into the session cookie payload.
func (s *Service) signSession(tok token.AccessToken) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Token: tok.Map(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if exp := tok.CreatedAt + tok.ExpiresIn; tok.CreatedAt > 0 && tok.ExpiresIn > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Unix(0, int64(exp*float64(time.Second))))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// verifySession verifies the cookie signature and rebuilds the token
// snapshot. An expired exp claim is tolerated: the refresh path needs to read
// the stale token, and expiry is judged by Authorized. Everything else,
// signature failure above all, is fatal.
func (s *Service) verifySession(raw string) (token.AccessToken, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(s.cfg.SessionSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return token.AccessToken{}, errors.Join(ErrInvalidSession, err)
	}
	return token.FromMap(claims.Token), nil
}

// Endpoints holds the flow URLs for one profile.
type Endpoints struct {
	Login    string
	Callback string
	Logout   string
}

// Session is the per-request authorization capability. Each request builds
// its own instance; there is no state shared across requests beyond the
// injected collaborators.
type Session struct {
	svc *Service
	w   http.ResponseWriter
	r   *http.Request
}

// Session builds the capability for one request. Prefer Middleware, which
// attaches it to the request context automatically.
func (s *Service) Session(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{svc: s, w: w, r: r}
}

// Authorized reports whether the caller holds a valid session for every
// named profile. Verification failures of any kind resolve to false, never
// to an error: "not logged in" is an answer, not a fault.
//
// Providers with a validation hook are checked live; a failed check falls
// back to a single refresh attempt when the token carries a refresh_token.
// Providers without the hook are judged on local expiry alone, with the same
// refresh fallback.
func (sess *Session) Authorized(ctx context.Context, names ...string) bool {
	for _, name := range names {
		p, err := sess.svc.registry.Resolve(name)
		if err != nil {
			return false
		}

		raw, err := sess.svc.cookies.Get(sess.r, sess.svc.cfg.CookieName)
		if err != nil {
			return false
		}
		tok, err := sess.svc.verifySession(raw)
		if err != nil {
			return false
		}

		if p.Provider.Validate != nil {
			if _, err := p.Provider.Validate(ctx, sess.svc.client, p.Provider, tok); err == nil {
				continue
			}
			if !sess.refreshSession(ctx, name, p, tok) {
				return false
			}
			continue
		}

		if tok.Valid(time.Now()) {
			continue
		}
		if !sess.refreshSession(ctx, name, p, tok) {
			return false
		}
	}
	return true
}

// refreshSession renews the token once, persists it and re-signs the cookie.
// Any failure means "not authorized".
func (sess *Session) refreshSession(ctx context.Context, name string, p profile.Profile, old token.AccessToken) bool {
	if old.RefreshToken == "" {
		return false
	}

	fresh, err := sess.svc.refresh(ctx, p, old)
	if err != nil {
		sess.svc.logger.Warn("token refresh failed",
			logger.Component("flow"), logger.Profile(name), logger.Error(err))
		return false
	}

	if err := sess.svc.store.Set(ctx, name, fresh.Login, fresh); err != nil {
		sess.svc.logger.Error("failed to persist refreshed token",
			logger.Component("flow"), logger.Profile(name), logger.Subject(fresh.Login), logger.Error(err))
		return false
	}

	signed, err := sess.svc.signSession(fresh)
	if err != nil {
		sess.svc.logger.Error("failed to re-sign session",
			logger.Component("flow"), logger.Profile(name), logger.Error(err))
		return false
	}
	sess.svc.cookies.Set(sess.w, sess.svc.cfg.CookieName, signed, cookie.WithMaxAge(int(fresh.ExpiresIn)))
	return true
}

// Profiles maps profile names to their flow endpoint URLs. Without
// arguments it covers the full registered set.
func (sess *Session) Profiles(names ...string) map[string]Endpoints {
	if len(names) == 0 {
		names = sess.svc.registry.Names()
	}
	out := make(map[string]Endpoints, len(names))
	for _, name := range names {
		out[name] = Endpoints{
			Login:    sess.svc.urls.Path(sess.svc.cfg.LoginPath, name),
			Callback: sess.svc.urls.Path(sess.svc.cfg.AuthorizedPath, name),
			Logout:   sess.svc.urls.Path(sess.svc.cfg.LogoutPath, name),
		}
	}
	return out
}

// TokenHeaders returns the Authorization header for onward API calls on the
// subject's behalf. A missing token still yields a well-formed header with
// an empty credential; callers are expected to check Authorized first.
func (sess *Session) TokenHeaders(ctx context.Context, profileName, subject string) http.Header {
	tok, err := sess.svc.store.Get(ctx, profileName, subject)
	if err != nil {
		tok = token.AccessToken{}
	}
	return http.Header{"Authorization": []string{tok.AuthorizationHeader()}}
}
