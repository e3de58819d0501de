package flow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/state"
	"github.com/dmitrymomot/oauthflow/pkg/token"
	"github.com/dmitrymomot/oauthflow/pkg/tokenstore"
)

func testConfig() Config {
	return Config{SessionSecret: "0123456789abcdef0123456789abcdef"}
}

func testProvider(tokenURL string) profile.Provider {
	if tokenURL == "" {
		tokenURL = "https://discord.com/api/oauth2/token"
	}
	return profile.Provider{
		AuthEndpoint:  profile.Endpoint{URL: "https://discord.com/oauth2/authorize"},
		TokenEndpoint: profile.Endpoint{URL: tokenURL},
		ClientID:      "cid",
		ClientSecret:  "csecret",
	}
}

func testRegistry(t *testing.T, prov profile.Provider) *profile.Registry {
	t.Helper()
	reg, err := profile.New(profile.Profile{
		Name:     "discord",
		Scope:    []string{"identify", "email"},
		Provider: prov,
	})
	require.NoError(t, err)
	return reg
}

// tokenEndpoint fakes a provider token endpoint, counting hits and capturing
// the last submitted form.
type tokenEndpoint struct {
	srv      *httptest.Server
	hits     atomic.Int64
	lastForm url.Values
	lastAuth string
}

func newTokenEndpoint(t *testing.T, status int, contentType, body string) *tokenEndpoint {
	t.Helper()
	ep := &tokenEndpoint{}
	ep.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ep.hits.Add(1)
		require.NoError(t, r.ParseForm())
		ep.lastForm = r.PostForm
		ep.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ep.srv.Close)
	return ep
}

func TestNew(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t, testProvider(""))
	guard := state.NewMemoryGuard(0)
	store := tokenstore.NewMemoryStore()

	t.Run("requires session secret", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{}, reg, guard, store)
		assert.ErrorIs(t, err, ErrMissingSessionSecret)
	})

	t.Run("requires collaborators", func(t *testing.T) {
		t.Parallel()

		_, err := New(testConfig(), nil, guard, store)
		assert.ErrorIs(t, err, ErrMissingRegistry)

		_, err = New(testConfig(), reg, nil, store)
		assert.ErrorIs(t, err, ErrMissingStateGuard)

		_, err = New(testConfig(), reg, guard, nil)
		assert.ErrorIs(t, err, ErrMissingTokenStore)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		svc, err := New(testConfig(), reg, guard, store)
		require.NoError(t, err)
		assert.Equal(t, "localhost:3000", svc.cfg.Host)
		assert.Equal(t, "/login/:name", svc.cfg.LoginPath)
		assert.Equal(t, "oauth_session", svc.cfg.CookieName)
		assert.NotNil(t, svc.client)
		assert.NotNil(t, svc.cookies)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("redirects to the provider", func(t *testing.T) {
		t.Parallel()

		guard := &MockGuard{}
		guard.On("Generate", mock.Anything, "discord").Return("st4te", nil)

		svc, err := New(testConfig(), testRegistry(t, testProvider("")), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)

		assert.Equal(t, "discord.com", loc.Host)
		q := loc.Query()
		assert.Equal(t, "cid", q.Get("client_id"))
		assert.Equal(t, "http://localhost:3000/login/discord/authorized", q.Get("redirect_uri"))
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "st4te", q.Get("state"))
		assert.Equal(t, "identify email", q.Get("scope"))

		guard.AssertExpectations(t)
	})

	t.Run("unknown profile is a 404", func(t *testing.T) {
		t.Parallel()

		svc, err := New(testConfig(), testRegistry(t, testProvider("")), state.NewMemoryGuard(0), tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/gitlab", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("prefix and host shape the redirect uri", func(t *testing.T) {
		t.Parallel()

		guard := &MockGuard{}
		guard.On("Generate", mock.Anything, "discord").Return("st4te", nil)

		cfg := testConfig()
		cfg.Host = "example.com"
		cfg.Prefix = "/app"
		svc, err := New(cfg, testRegistry(t, testProvider("")), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord", nil))

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/app/login/discord/authorized", loc.Query().Get("redirect_uri"))
	})
}

func TestCallback(t *testing.T) {
	t.Parallel()

	t.Run("state mismatch aborts before the exchange", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X"}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "forged").Return(state.ErrStateMismatch)

		store := &MockStore{}

		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, store)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=forged", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, int64(0), ep.hits.Load(), "token endpoint must not be contacted")
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		guard.AssertExpectations(t)
	})

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json",
			`{"access_token":"X","token_type":"bearer","expires_in":3600}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		store := tokenstore.NewMemoryStore()
		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, store)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil)
		svc.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		// The exchange carried the protocol form fields and basic auth.
		assert.Equal(t, "authorization_code", ep.lastForm.Get("grant_type"))
		assert.Equal(t, "abc", ep.lastForm.Get("code"))
		assert.Equal(t, "cid", ep.lastForm.Get("client_id"))
		assert.Equal(t, "http://localhost:3000/login/discord/authorized", ep.lastForm.Get("redirect_uri"))
		assert.NotEmpty(t, ep.lastAuth)

		// Token persisted under (profile, subject).
		stored, err := store.Get(context.Background(), "discord", "")
		require.NoError(t, err)
		assert.Equal(t, "X", stored.AccessToken)
		assert.Positive(t, stored.CreatedAt)

		// Session cookie present and verifiable.
		var sessionValue string
		for _, c := range rec.Result().Cookies() {
			if c.Name == "oauth_session" {
				sessionValue = c.Value
				assert.Equal(t, 3600, c.MaxAge)
			}
		}
		require.NotEmpty(t, sessionValue)
		tok, err := svc.verifySession(sessionValue)
		require.NoError(t, err)
		assert.Equal(t, "X", tok.AccessToken)
	})

	t.Run("missing expires_in defaults to 3600", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X"}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		store := tokenstore.NewMemoryStore()
		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, store)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		stored, err := store.Get(context.Background(), "discord", "")
		require.NoError(t, err)
		assert.Equal(t, float64(3600), stored.ExpiresIn)
	})

	t.Run("provider error is surfaced with detail", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusUnauthorized, "application/json", `{"error":"invalid_client"}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "401")
		assert.Contains(t, rec.Body.String(), "invalid_client")
		assert.NotContains(t, rec.Body.String(), "csecret")
	})

	t.Run("non-json response fails the exchange", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "text/html", "<html>maintenance</html>")

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("validation hook merges identity fields", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X","expires_in":3600}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		prov := testProvider(ep.srv.URL)
		prov.Validate = func(_ context.Context, _ *http.Client, _ profile.Provider, _ token.AccessToken) (map[string]any, error) {
			return map[string]any{"login": "alice", "plan": "pro"}, nil
		}

		store := tokenstore.NewMemoryStore()
		svc, err := New(testConfig(), testRegistry(t, prov), guard, store)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		stored, err := store.Get(context.Background(), "discord", "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.Login)
		assert.Equal(t, "pro", stored.Extra["plan"])
	})

	t.Run("validation hook failure fails the callback", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X","expires_in":3600}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		prov := testProvider(ep.srv.URL)
		prov.Validate = func(_ context.Context, _ *http.Client, _ profile.Provider, _ token.AccessToken) (map[string]any, error) {
			return nil, &profile.ProviderError{Status: 403, StatusText: "Forbidden", Body: "nope"}
		}

		store := &MockStore{}
		svc, err := New(testConfig(), testRegistry(t, prov), guard, store)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=abc&state=st4te", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("url-encoded code is decoded before the exchange", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X"}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		// %252F is a double-encoded slash: the query parser yields "ab%2Fcd",
		// the callback decodes it once more to "ab/cd".
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=ab%252Fcd&state=st4te", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "ab/cd", ep.lastForm.Get("code"))
	})

	t.Run("plus in the code survives decoding", func(t *testing.T) {
		t.Parallel()

		ep := newTokenEndpoint(t, http.StatusOK, "application/json", `{"access_token":"X"}`)

		guard := &MockGuard{}
		guard.On("Check", mock.Anything, "discord", "st4te").Return(nil)

		svc, err := New(testConfig(), testRegistry(t, testProvider(ep.srv.URL)), guard, tokenstore.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		// Single-encoded: the query parser yields "a+b", and the second
		// decode pass must not turn the plus into a space.
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/discord/authorized?code=a%2Bb&state=st4te", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "a+b", ep.lastForm.Get("code"))
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	svc, err := New(testConfig(), testRegistry(t, testProvider("")), state.NewMemoryGuard(0), tokenstore.NewMemoryStore())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout/discord", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "oauth_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
