package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/oauthflow/pkg/profile"
	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// var, not const: swapped for a test server in tests.
var googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// googleValidate is Google's post-exchange verification call. It confirms
// the token against the tokeninfo endpoint and returns the canonical
// identity fields, mapping the account email onto the token's login so the
// store keys by it.
func googleValidate(ctx context.Context, client *http.Client, _ profile.Provider, tok token.AccessToken) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		googleTokenInfoURL+"?"+url.Values{"access_token": {tok.AccessToken}}.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return nil, &profile.ProviderError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if email, ok := fields["email"].(string); ok && email != "" {
		fields["login"] = email
	}
	return fields, nil
}
