// Package urls builds the deterministic URLs the flow depends on: plugin
// endpoint paths, their fully qualified external form, and provider
// authorization URLs. Determinism matters beyond tests: the callback URL
// sent to a provider must match the redirect URI registered with it
// byte-for-byte.
package urls

import (
	"net/url"
	"strings"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
)

// DefaultHost is used when a builder has no host configured.
const DefaultHost = "localhost:3000"

// Builder renders endpoint templates against a host and path prefix. The
// zero value is usable and targets DefaultHost.
type Builder struct {
	Host   string // domain[:port]
	Prefix string // path prefix, no trailing slash
}

func (b Builder) host() string {
	if b.Host == "" {
		return DefaultHost
	}
	return b.Host
}

// Scheme is http for localhost hosts and https everywhere else.
func (b Builder) Scheme() string {
	if strings.HasPrefix(b.host(), "localhost") {
		return "http"
	}
	return "https"
}

// Path renders a template containing the :name placeholder into a path-only
// URL under the builder's prefix.
func (b Builder) Path(template, name string) string {
	return b.Prefix + strings.ReplaceAll(template, ":name", name)
}

// External renders a template into a fully qualified URL.
func (b Builder) External(template, name string) string {
	return b.Scheme() + "://" + b.host() + b.Path(template, name)
}

// AuthCodeURL constructs the provider authorization URL for a profile.
// Provider extra auth params are merged in first, then the profile scope and
// the protocol-mandated keys, so extras can never shadow the requested
// scopes, client_id, redirect_uri, response_type, response_mode or state.
// Query encoding is sorted, so identical inputs always yield identical
// strings.
func AuthCodeURL(p profile.Profile, redirectURI, state string) string {
	q := url.Values{}
	for k, vs := range p.Provider.AuthEndpoint.Params {
		q[k] = append([]string(nil), vs...)
	}
	if scope := p.Provider.JoinScope(p.Scope); scope != "" {
		q.Set("scope", scope)
	}
	q.Set("client_id", p.Provider.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("response_mode", "query")
	q.Set("state", state)

	sep := "?"
	if strings.Contains(p.Provider.AuthEndpoint.URL, "?") {
		sep = "&"
	}
	return p.Provider.AuthEndpoint.URL + sep + q.Encode()
}
