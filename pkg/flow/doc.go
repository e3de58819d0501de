// Package flow implements the relying-party half of the OAuth2
// authorization-code grant (RFC 6749) as a mountable plugin for chi-based
// applications, plus the per-request session capability application code
// queries afterwards.
//
// # Protocol flow
//
// Three GET endpoints drive the flow, all templated on a profile name:
//
//	/login/:name              redirect the user to the provider, carrying a
//	                          single-use anti-CSRF state token
//	/login/:name/authorized   provider callback: validate state, exchange the
//	                          code, run the provider's optional validation
//	                          hook, persist the token, sign the session
//	                          cookie, redirect onwards
//	/logout/:name             clear the session cookie and redirect
//
// State validation always completes before the token exchange begins; a
// mismatch aborts the callback without ever contacting the token endpoint.
// The exchange POST is form-encoded with HTTP Basic client credentials
// (some providers require it, the rest ignore it) and Accept:
// application/json. A non-2xx or non-JSON reply fails the callback with the
// upstream status and body preserved; there is no retry, since resending a
// one-time authorization code cannot succeed.
//
// # Session capability
//
// Middleware attaches a Session to every request context. Downstream
// handlers recover it with SessionFromContext and ask three questions:
// Authorized (AND over profiles, inline refresh when a refresh_token
// allows), Profiles (endpoint URLs per profile) and TokenHeaders (Bearer
// header for onward API calls).
//
// The session cookie is a bare token snapshot shared across profiles, not
// bound to the profile whose callback issued it. Each Authorized check
// re-validates that snapshot against the named profile's provider; the
// authoritative per-profile tokens live in the store, keyed by
// (profile, subject).
//
// # Usage
//
//	registry, _ := profile.New(profile.Profile{
//	    Name:     "github",
//	    Scope:    []string{"repo", "user"},
//	    Provider: providers.GitHub(clientID, clientSecret),
//	})
//
//	svc, _ := flow.New(cfg, registry,
//	    state.NewMemoryGuard(0),
//	    tokenstore.NewMemoryStore(),
//	)
//
//	r := chi.NewRouter()
//	r.Use(svc.Middleware())
//	r.Mount("/", svc.Handler())
//
// # Logout semantics
//
// Logout invalidates the session client-side only: the cookie is expired,
// the stored token is kept. That lets a returning user re-authenticate
// without a fresh consent screen. Applications that want server-side
// revocation call tokenstore.Store.Delete themselves.
package flow
