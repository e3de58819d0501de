// Package token defines the access-token value type shared by the flow
// engine and the token stores. Tokens are plain values: every mutation
// (defaulting, refresh, provider-field merge) produces a new token.
package token

import (
	"encoding/json"
	"strconv"
	"time"
)

// DefaultExpiresIn is assigned at exchange time when the provider response
// omits expires_in, per RFC 6749 providers are allowed to do.
const DefaultExpiresIn float64 = 3600

// AccessToken mirrors the OAuth2 token-endpoint response, extended with the
// server-set created_at stamp. ExpiresIn and CreatedAt are fractional unix
// seconds; providers are not required to return integers.
type AccessToken struct {
	TokenType    string
	Scope        string
	ExpiresIn    float64
	AccessToken  string
	CreatedAt    float64
	RefreshToken string
	Login        string

	// Extra holds provider fields outside the standard token shape,
	// e.g. the result of a post-exchange validation call.
	Extra map[string]any
}

// UnixSeconds converts a time to fractional unix seconds, the unit all token
// expiry arithmetic uses.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Issued returns a copy with exchange-time defaults applied: expires_in
// falls back to DefaultExpiresIn and created_at is stamped from now.
func (t AccessToken) Issued(now time.Time) AccessToken {
	if t.ExpiresIn == 0 {
		t.ExpiresIn = DefaultExpiresIn
	}
	t.CreatedAt = UnixSeconds(now)
	return t
}

// Expired reports whether created_at + expires_in lies in the past. Tokens
// without expiry information never expire locally; a default was already
// assigned at exchange time, so this only applies to externally built tokens.
func (t AccessToken) Expired(now time.Time) bool {
	if t.CreatedAt == 0 || t.ExpiresIn == 0 {
		return false
	}
	return UnixSeconds(now) >= t.CreatedAt+t.ExpiresIn
}

// Valid is the complement of Expired.
func (t AccessToken) Valid(now time.Time) bool {
	return !t.Expired(now)
}

// AuthorizationHeader formats the token as a Bearer credential. The header
// is syntactically valid even for the zero token; callers are expected to
// gate on authorization first.
func (t AccessToken) AuthorizationHeader() string {
	return "Bearer " + t.AccessToken
}

// Merge overlays provider-returned fields onto the token. Known keys shadow
// the base fields, unknown keys accumulate in Extra.
func (t AccessToken) Merge(fields map[string]any) AccessToken {
	m := t.Map()
	for k, v := range fields {
		m[k] = v
	}
	return FromMap(m)
}

// Map renders the token as a flat claims map. Zero-valued standard fields
// are omitted so the map round-trips through FromMap losslessly.
func (t AccessToken) Map() map[string]any {
	m := make(map[string]any, len(t.Extra)+7)
	for k, v := range t.Extra {
		m[k] = v
	}
	if t.TokenType != "" {
		m["token_type"] = t.TokenType
	}
	if t.Scope != "" {
		m["scope"] = t.Scope
	}
	if t.ExpiresIn != 0 {
		m["expires_in"] = t.ExpiresIn
	}
	if t.AccessToken != "" {
		m["access_token"] = t.AccessToken
	}
	if t.CreatedAt != 0 {
		m["created_at"] = t.CreatedAt
	}
	if t.RefreshToken != "" {
		m["refresh_token"] = t.RefreshToken
	}
	if t.Login != "" {
		m["login"] = t.Login
	}
	return m
}

// FromMap builds a token from a flat claims map, tolerating the numeric
// representations JSON decoding produces.
func FromMap(m map[string]any) AccessToken {
	var t AccessToken
	extra := make(map[string]any)
	for k, v := range m {
		switch k {
		case "token_type":
			t.TokenType = asString(v)
		case "scope":
			t.Scope = asString(v)
		case "expires_in":
			t.ExpiresIn = asFloat(v)
		case "access_token":
			t.AccessToken = asString(v)
		case "created_at":
			t.CreatedAt = asFloat(v)
		case "refresh_token":
			t.RefreshToken = asString(v)
		case "login":
			t.Login = asString(v)
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		t.Extra = extra
	}
	return t
}

// MarshalJSON serializes the token as its flat claims map so Extra fields
// survive storage round-trips.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Map())
}

// UnmarshalJSON accepts any JSON object shaped like a token response.
func (t *AccessToken) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = FromMap(m)
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat coerces the numeric shapes providers actually send: JSON numbers
// decode to float64, but some providers quote expires_in as a string.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
