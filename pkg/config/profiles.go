package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/providers"
)

// ProfileSet is the YAML document shape for a profile-set file:
//
//	profiles:
//	  github:
//	    provider: github
//	    client_id: abc
//	    client_secret: def
//	    scope: [repo, user]
//	  acme:
//	    client_id: abc
//	    client_secret: def
//	    auth_url: https://sso.acme.test/authorize
//	    token_url: https://sso.acme.test/token
//	    auth_params:
//	      prompt: consent
type ProfileSet struct {
	Profiles map[string]ProfileConfig `yaml:"profiles"`
}

// ProfileConfig configures one profile. Provider names the catalog entry to
// start from; without it the endpoint URLs must be given explicitly.
type ProfileConfig struct {
	Provider     string            `yaml:"provider"`
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	Scope        []string          `yaml:"scope"`
	AuthURL      string            `yaml:"auth_url"`
	TokenURL     string            `yaml:"token_url"`
	ProfileURL   string            `yaml:"profile_url"`
	ScopeSep     string            `yaml:"scope_separator"`
	AuthParams   map[string]string `yaml:"auth_params"`
	TokenParams  map[string]string `yaml:"token_params"`
}

var catalog = map[string]func(clientID, clientSecret string) profile.Provider{
	"github":   providers.GitHub,
	"google":   providers.Google,
	"discord":  providers.Discord,
	"facebook": providers.Facebook,
	"slack":    providers.Slack,
}

// LoadProfiles reads a YAML profile-set file into profiles ready for
// registry construction.
func LoadProfiles(path string) ([]profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles builds profiles from a YAML profile-set document.
func ParseProfiles(data []byte) ([]profile.Profile, error) {
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	out := make([]profile.Profile, 0, len(set.Profiles))
	for name, pc := range set.Profiles {
		p, err := pc.build(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (pc ProfileConfig) build(name string) (profile.Profile, error) {
	var prov profile.Provider
	if pc.Provider != "" {
		construct, ok := catalog[pc.Provider]
		if !ok {
			return profile.Profile{}, fmt.Errorf("%w: %q in profile %q", ErrUnknownProvider, pc.Provider, name)
		}
		prov = construct(pc.ClientID, pc.ClientSecret)
	} else {
		if pc.AuthURL == "" || pc.TokenURL == "" {
			return profile.Profile{}, fmt.Errorf("%w: profile %q", ErrMissingEndpoint, name)
		}
		prov = profile.Provider{
			AuthEndpoint:  profile.Endpoint{URL: pc.AuthURL},
			TokenEndpoint: profile.Endpoint{URL: pc.TokenURL},
			ClientID:      pc.ClientID,
			ClientSecret:  pc.ClientSecret,
		}
	}

	// Explicit endpoint overrides apply on top of catalog entries too.
	if pc.AuthURL != "" {
		prov.AuthEndpoint.URL = pc.AuthURL
	}
	if pc.TokenURL != "" {
		prov.TokenEndpoint.URL = pc.TokenURL
	}
	if pc.ProfileURL != "" {
		prov.ProfileEndpoint.URL = pc.ProfileURL
	}
	if pc.ScopeSep != "" {
		prov.ScopeSeparator = pc.ScopeSep
	}
	if len(pc.AuthParams) > 0 {
		prov.AuthEndpoint.Params = toValues(pc.AuthParams)
	}
	if len(pc.TokenParams) > 0 {
		prov.TokenEndpoint.Params = toValues(pc.TokenParams)
	}

	return profile.Profile{Name: name, Scope: pc.Scope, Provider: prov}, nil
}

func toValues(m map[string]string) url.Values {
	v := make(url.Values, len(m))
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}
