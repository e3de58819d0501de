// Package providers is the catalog of known identity providers: endpoint
// sets, scope conventions and per-provider quirks, expressed as
// profile.Provider constructors. Endpoint URLs come from
// golang.org/x/oauth2/endpoints so they track the canonical values.
//
// The catalog is plain data. Providers not listed here are configured by
// filling in a profile.Provider directly.
package providers

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
)

func fromEndpoint(ep oauth2.Endpoint, profileURL, clientID, clientSecret string) profile.Provider {
	return profile.Provider{
		AuthEndpoint:    profile.Endpoint{URL: ep.AuthURL},
		TokenEndpoint:   profile.Endpoint{URL: ep.TokenURL},
		ProfileEndpoint: profile.Endpoint{URL: profileURL},
		ClientID:        clientID,
		ClientSecret:    clientSecret,
	}
}

// GitHub returns the provider configuration for github.com.
func GitHub(clientID, clientSecret string) profile.Provider {
	return fromEndpoint(endpoints.GitHub, "https://api.github.com/user", clientID, clientSecret)
}

// Google returns the provider configuration for Google accounts. Google
// tokens are verified against the tokeninfo endpoint after exchange and on
// authorization checks, so a revoked token fails fast instead of riding out
// its local expiry window.
func Google(clientID, clientSecret string) profile.Provider {
	p := fromEndpoint(endpoints.Google, "https://openidconnect.googleapis.com/v1/userinfo", clientID, clientSecret)
	p.Validate = googleValidate
	return p
}

// Discord returns the provider configuration for discord.com.
func Discord(clientID, clientSecret string) profile.Provider {
	return fromEndpoint(endpoints.Discord, "https://discord.com/api/users/@me", clientID, clientSecret)
}

// Facebook returns the provider configuration for facebook.com. Facebook
// expects comma-joined scopes.
func Facebook(clientID, clientSecret string) profile.Provider {
	p := fromEndpoint(endpoints.Facebook, "https://graph.facebook.com/me", clientID, clientSecret)
	p.ScopeSeparator = ","
	return p
}

// Slack returns the provider configuration for slack.com.
func Slack(clientID, clientSecret string) profile.Provider {
	return fromEndpoint(endpoints.Slack, "https://slack.com/api/users.identity", clientID, clientSecret)
}
