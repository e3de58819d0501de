// Package profile maps profile names to provider credentials, endpoints and
// requested scopes. The registry is immutable after construction: profiles
// are loaded once at startup and shared read-only across requests.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// Endpoint is one provider URL plus the extra query or form parameters the
// provider expects alongside the protocol-mandated ones. Protocol parameters
// always win on key conflicts.
type Endpoint struct {
	URL    string
	Params url.Values
}

// ValidateFunc is the optional post-exchange capability: providers that
// require an extra verification round-trip before a token is usable return
// canonical identity fields from it. The same hook serves as the live check
// during authorization queries.
type ValidateFunc func(ctx context.Context, client *http.Client, p Provider, tok token.AccessToken) (map[string]any, error)

// Provider describes the remote authorization server's endpoint set and this
// relying party's client credentials for it.
type Provider struct {
	AuthEndpoint    Endpoint
	TokenEndpoint   Endpoint
	ProfileEndpoint Endpoint

	ClientID     string
	ClientSecret string

	// ScopeSeparator joins the requested scopes in the authorization URL.
	// Space per RFC 6749 unless the provider's convention differs.
	ScopeSeparator string

	// Validate, when set, marks the provider as requiring live validation.
	Validate ValidateFunc
}

// JoinScope formats a scope list using the provider's separator.
func (p Provider) JoinScope(scope []string) string {
	sep := p.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	out := ""
	for i, s := range scope {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}

// Profile binds one identity provider plus a requested scope set under a
// unique name.
type Profile struct {
	Name     string
	Scope    []string
	Provider Provider
}

// Registry is the read-only profile lookup table. It needs no locking:
// nothing mutates it after New returns.
type Registry struct {
	profiles map[string]Profile
	names    []string
}

// New builds a registry from the given profiles. Profiles without a name or
// client credentials are rejected, as are duplicate names.
func New(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if p.Name == "" {
			return nil, ErrMissingName
		}
		if p.Provider.ClientID == "" || p.Provider.ClientSecret == "" {
			return nil, fmt.Errorf("%w: profile %q", ErrMissingCredentials, p.Name)
		}
		if _, exists := r.profiles[p.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
		r.profiles[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Resolve returns the profile registered under name or ErrProfileNotFound.
func (r *Registry) Resolve(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// Names lists the registered profile names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
