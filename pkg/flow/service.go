package flow

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/oauthflow/pkg/cookie"
	"github.com/dmitrymomot/oauthflow/pkg/logger"
	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/state"
	"github.com/dmitrymomot/oauthflow/pkg/tokenstore"
	"github.com/dmitrymomot/oauthflow/pkg/urls"
)

// Service drives the authorization-code flow for every registered profile.
// One instance serves any number of profiles; requests for different
// profiles are fully independent.
type Service struct {
	cfg      Config
	registry *profile.Registry
	guard    state.Guard
	store    tokenstore.Store
	urls     urls.Builder
	cookies  *cookie.Manager
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger configures the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithHTTPClient replaces the outbound HTTP client used for token exchange,
// refresh and provider validation calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithCookieManager replaces the cookie manager built from the config.
func WithCookieManager(m *cookie.Manager) Option {
	return func(s *Service) { s.cookies = m }
}

// New constructs the flow service from a resolved config and its three
// collaborators.
func New(cfg Config, registry *profile.Registry, guard state.Guard, store tokenstore.Store, opts ...Option) (*Service, error) {
	cfg = cfg.withDefaults()
	if cfg.SessionSecret == "" {
		return nil, ErrMissingSessionSecret
	}
	if registry == nil {
		return nil, ErrMissingRegistry
	}
	if guard == nil {
		return nil, ErrMissingStateGuard
	}
	if store == nil {
		return nil, ErrMissingTokenStore
	}

	s := &Service{
		cfg:      cfg,
		registry: registry,
		guard:    guard,
		store:    store,
		urls:     urls.Builder{Host: cfg.Host, Prefix: cfg.Prefix},
		client:   &http.Client{Timeout: cfg.ExchangeTimeout},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cookies == nil {
		s.cookies = cookie.New(
			cookie.WithSecure(cfg.CookieSecure),
			cookie.WithHTTPOnly(cfg.CookieHTTPOnly),
		)
	}
	return s, nil
}

// Handler returns the router serving the three flow endpoints. Mount it at
// the configured prefix.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(chiPattern(s.cfg.LoginPath), s.handleLogin)
	r.Get(chiPattern(s.cfg.AuthorizedPath), s.handleCallback)
	r.Get(chiPattern(s.cfg.LogoutPath), s.handleLogout)
	return r
}

// chiPattern converts the :name template convention to chi's {name}.
func chiPattern(template string) string {
	return strings.ReplaceAll(template, ":name", "{name}")
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := s.registry.Resolve(name)
	if err != nil {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	stateToken, err := s.guard.Generate(r.Context(), name)
	if err != nil {
		s.logger.Error("failed to generate state token",
			logger.Component("flow"), logger.Profile(name), logger.Error(err))
		http.Error(w, "failed to begin login", http.StatusInternalServerError)
		return
	}

	authURL := urls.AuthCodeURL(p, s.urls.External(s.cfg.AuthorizedPath, name), stateToken)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	p, err := s.registry.Resolve(name)
	if err != nil {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	// CSRF defense: the state must validate before anything else happens.
	q := r.URL.Query()
	if err := s.guard.Check(ctx, name, q.Get("state")); err != nil {
		s.logger.Warn("state token mismatch",
			logger.Component("flow"), logger.Profile(name))
		http.Error(w, "state mismatch", http.StatusForbidden)
		return
	}

	// Some providers double-encode the code on the redirect back. The query
	// parser already decoded once, so this pass must leave "+" alone: a code
	// can legitimately contain it.
	code := q.Get("code")
	if decoded, err := url.PathUnescape(code); err == nil {
		code = decoded
	}

	tok, err := s.exchange(ctx, p, s.urls.External(s.cfg.AuthorizedPath, name), code)
	if err != nil {
		s.respondProviderError(w, name, "token exchange failed", err)
		return
	}

	if p.Provider.Validate != nil {
		fields, err := p.Provider.Validate(ctx, s.client, p.Provider, tok)
		if err != nil {
			s.respondProviderError(w, name, "token validation failed", err)
			return
		}
		tok = tok.Merge(fields)
	}

	if err := s.store.Set(ctx, name, tok.Login, tok); err != nil {
		s.logger.Error("failed to persist token",
			logger.Component("flow"), logger.Profile(name), logger.Subject(tok.Login), logger.Error(err))
		http.Error(w, "failed to persist token", http.StatusInternalServerError)
		return
	}

	signed, err := s.signSession(tok)
	if err != nil {
		s.logger.Error("failed to sign session",
			logger.Component("flow"), logger.Profile(name), logger.Error(err))
		http.Error(w, "failed to sign session", http.StatusInternalServerError)
		return
	}
	s.cookies.Set(w, s.cfg.CookieName, signed, cookie.WithMaxAge(int(tok.ExpiresIn)))

	http.Redirect(w, r, s.urls.Path(s.cfg.RedirectTo, name), http.StatusFound)
}

// handleLogout clears the session cookie unconditionally. The stored token
// is intentionally kept; see the package documentation.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.cookies.Delete(w, s.cfg.CookieName)
	http.Redirect(w, r, s.urls.Path(s.cfg.RedirectTo, name), http.StatusFound)
}

// respondProviderError surfaces a failed provider round-trip with the
// upstream status and body preserved for diagnosability.
func (s *Service) respondProviderError(w http.ResponseWriter, name, msg string, err error) {
	var perr *profile.ProviderError
	if errors.As(err, &perr) {
		s.logger.Error(msg,
			logger.Component("flow"), logger.Profile(name), logger.Status(perr.Status), logger.Error(err))
		http.Error(w, msg+": "+perr.Error(), http.StatusBadGateway)
		return
	}
	s.logger.Error(msg, logger.Component("flow"), logger.Profile(name), logger.Error(err))
	http.Error(w, msg, http.StatusBadGateway)
}
