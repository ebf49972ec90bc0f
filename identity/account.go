package identity

import (
	"strings"
	"time"
)

// Account is a signed-in identity as reported by the provider. Callers outside
// the provider only read Name.
type Account struct {
	HomeAccountID  string // "<oid>.<tid>", unique across tenants
	LocalAccountID string // Object ID in the home tenant
	TenantID       string
	Environment    string // Host of the authority, e.g. login.microsoftonline.com
	Username       string // preferred_username, usually the UPN
	Name           string // Display name, may be empty
}

// HomeAccountID builds the cross-tenant account key from the oid and tid claims.
func HomeAccountID(objectID, tenantID string) string {
	return objectID + "." + tenantID
}

// Equal reports whether a and b identify the same account.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(a.HomeAccountID, b.HomeAccountID)
}

// AuthenticationResult is returned by every successful sign-in or token request.
type AuthenticationResult struct {
	Account     *Account
	AccessToken string
	IDToken     string
	TokenType   string
	Scopes      []string
	ExpiresOn   time.Time
}
