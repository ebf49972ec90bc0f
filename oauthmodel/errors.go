package oauthmodel

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCode        = errors.New("missing code parameter")
	ErrMissingState       = errors.New("missing state parameter")
	ErrInvalidRedirectUri = errors.New("invalid or no redirect uri")
)

// AuthorizationError is the error response an authorization server returns to
// the redirect URI instead of a code.
// Example: ?error=access_denied&error_description=AADSTS65004...
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
