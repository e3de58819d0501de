package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// exchange swaps an authorization code for an access token at the provider's
// token endpoint.
func (s *Service) exchange(ctx context.Context, p profile.Profile, redirectURI, code string) (token.AccessToken, error) {
	form := url.Values{}
	for k, vs := range p.Provider.TokenEndpoint.Params {
		form[k] = append([]string(nil), vs...)
	}
	// Protocol parameters win over provider extras.
	form.Set("client_id", p.Provider.ClientID)
	form.Set("client_secret", p.Provider.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	return s.tokenRequest(ctx, p, form)
}

// refresh renews an access token using its refresh_token. Fields the
// provider omits from the refresh response (commonly the refresh_token
// itself) are carried over from the old token.
func (s *Service) refresh(ctx context.Context, p profile.Profile, old token.AccessToken) (token.AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", p.Provider.ClientID)
	form.Set("client_secret", p.Provider.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", old.RefreshToken)

	fresh, err := s.tokenRequest(ctx, p, form)
	if err != nil {
		return token.AccessToken{}, err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = old.RefreshToken
	}
	if fresh.Login == "" {
		fresh.Login = old.Login
	}
	return fresh, nil
}

// tokenRequest POSTs a form to the token endpoint and decodes the reply.
// Client credentials ride both in the form and as HTTP Basic auth: some
// providers insist on the header, the rest ignore it.
func (s *Service) tokenRequest(ctx context.Context, p profile.Profile, form url.Values) (token.AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.Provider.TokenEndpoint.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return token.AccessToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(p.Provider.ClientID, p.Provider.ClientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 ||
		!strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return token.AccessToken{}, &profile.ProviderError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	var tok token.AccessToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	return tok.Issued(time.Now()), nil
}
