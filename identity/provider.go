package identity

import "context"

// SilentRequest asks for a token without user interaction.
type SilentRequest struct {
	Scopes  []string
	Account *Account
}

// LogoutRequest describes a provider sign-out.
type LogoutRequest struct {
	Account *Account

	// OnRedirectNavigate is called with the sign-out URL. Returning false keeps
	// the local sign-out but skips navigating to the provider.
	OnRedirectNavigate func(url string) bool
}

// Provider is the identity provider capability set the session controller
// depends on. Implementations own their account cache and any token reuse.
type Provider interface {
	// GetActiveAccount returns the account used for silent operations, or nil.
	GetActiveAccount() *Account

	// SetActiveAccount selects the account used for silent operations.
	SetActiveAccount(account *Account)

	// SSOSilent signs in using an existing provider session. It fails when
	// user interaction is needed.
	SSOSilent(ctx context.Context, scopes []string) (*AuthenticationResult, error)

	// LoginPopup signs in interactively.
	LoginPopup(ctx context.Context, scopes []string) (*AuthenticationResult, error)

	// AcquireTokenSilent returns a token for the request's account and scopes
	// without user interaction.
	AcquireTokenSilent(ctx context.Context, request SilentRequest) (*AuthenticationResult, error)

	// LogoutRedirect signs the account out at the provider.
	LogoutRedirect(ctx context.Context, request LogoutRequest) error
}
