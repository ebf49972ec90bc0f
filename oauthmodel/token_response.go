package oauthmodel

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the bearer credential for the requested resource.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// IdToken is the OpenID Connect ID token carrying the signed-in identity.
	// Only present: When "openid" scope was requested
	IdToken string `json:"id_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is used to obtain new access tokens without user interaction.
	// Only present: When "offline_access" scope was requested
	// Behavior: May be rotated on each use
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions (space-separated).
	Scope string `json:"scope,omitempty"`
}
