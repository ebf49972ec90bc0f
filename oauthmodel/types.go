package oauthmodel

import (
	"net/url"
	"slices"
	"strings"
)

// Standard OpenID Connect scopes requested alongside resource scopes.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeOfflineAccess = "offline_access"
)

// PromptType controls the interaction the authorization endpoint shows.
type PromptType string

const (
	// SelectAccountPrompt shows the account picker, even with a single signed-in account.
	SelectAccountPrompt PromptType = "select_account"
)

// ResponseModeType denotes how the authorization response parameters are returned to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Example: http://localhost:53682/?code=ABC123&state=xyz
	QueryResponseMode ResponseModeType = "query"
)

// WithOIDCScopes returns scopes with openid, profile and offline_access added
// once each, keeping the caller's order first.
func WithOIDCScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes)+3)
	for _, s := range append(slices.Clone(scopes), ScopeOpenID, ScopeProfile, ScopeOfflineAccess) {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ScopeString joins scopes the way they are sent on the wire.
func ScopeString(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ParseAuthorizationResponse extracts the code and state of a redirect back
// from the authorization endpoint, or the error the server reported.
func ParseAuthorizationResponse(values url.Values) (code, state string, err error) {
	if errorCode := values.Get("error"); errorCode != "" {
		return "", "", &AuthorizationError{Code: errorCode, Description: values.Get("error_description")}
	}
	state = values.Get("state")
	if state == "" {
		return "", "", ErrMissingState
	}
	code = values.Get("code")
	if code == "" {
		return "", "", ErrMissingCode
	}
	return code, state, nil
}
