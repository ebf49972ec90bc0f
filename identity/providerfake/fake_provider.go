package providerfake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-entra-query/identity"
	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
)

var _ identity.Provider = (*FakeProvider)(nil)

const (
	CallSSOSilent          = "SSOSilent"
	CallLoginPopup         = "LoginPopup"
	CallAcquireTokenSilent = "AcquireTokenSilent"
	CallLogoutRedirect     = "LogoutRedirect"
)

// FakeProvider is a scriptable in-memory identity.Provider. Unset hooks fall
// back to a provider with no session: silent sign-in needs interaction and
// interactive sign-in fails.
type FakeProvider struct {
	SSOSilentFunc          func(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error)
	LoginPopupFunc         func(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error)
	AcquireTokenSilentFunc func(ctx context.Context, request identity.SilentRequest) (*identity.AuthenticationResult, error)
	LogoutRedirectFunc     func(ctx context.Context, request identity.LogoutRequest) error

	active *identity.Account
	calls  map[string]int
	lock   sync.RWMutex
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		calls: make(map[string]int),
	}
}

// Calls returns how many times the named operation was invoked.
func (p *FakeProvider) Calls(name string) int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.calls[name]
}

func (p *FakeProvider) record(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.calls[name]++
}

func (p *FakeProvider) GetActiveAccount() *identity.Account {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.active
}

func (p *FakeProvider) SetActiveAccount(account *identity.Account) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.active = account
}

func (p *FakeProvider) SSOSilent(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error) {
	p.record(CallSSOSilent)
	if p.SSOSilentFunc != nil {
		return p.SSOSilentFunc(ctx, scopes)
	}
	return nil, apperrors.ErrInteractionRequired
}

func (p *FakeProvider) LoginPopup(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error) {
	p.record(CallLoginPopup)
	if p.LoginPopupFunc != nil {
		return p.LoginPopupFunc(ctx, scopes)
	}
	return nil, errors.New("popup window closed")
}

func (p *FakeProvider) AcquireTokenSilent(ctx context.Context, request identity.SilentRequest) (*identity.AuthenticationResult, error) {
	p.record(CallAcquireTokenSilent)
	if p.AcquireTokenSilentFunc != nil {
		return p.AcquireTokenSilentFunc(ctx, request)
	}
	if request.Account == nil {
		return nil, apperrors.ErrNoActiveAccount
	}
	return &identity.AuthenticationResult{
		Account:     request.Account,
		AccessToken: FakeAccessToken(request.Scopes),
		TokenType:   "Bearer",
		Scopes:      request.Scopes,
		ExpiresOn:   time.Now().Add(time.Hour),
	}, nil
}

func (p *FakeProvider) LogoutRedirect(ctx context.Context, request identity.LogoutRequest) error {
	p.record(CallLogoutRedirect)
	p.SetActiveAccount(nil)
	if p.LogoutRedirectFunc != nil {
		return p.LogoutRedirectFunc(ctx, request)
	}
	return nil
}

// FakeAccessToken is the token the default AcquireTokenSilent hands out.
func FakeAccessToken(scopes []string) string {
	return "fake-token:" + strings.Join(scopes, " ")
}

// Result builds a successful authentication result for account.
func Result(account *identity.Account) *identity.AuthenticationResult {
	return &identity.AuthenticationResult{
		Account:     account,
		AccessToken: "fake-token",
		TokenType:   "Bearer",
		ExpiresOn:   time.Now().Add(time.Hour),
	}
}

// NewAccount builds an account with a stable home account id.
func NewAccount(objectID, name string) *identity.Account {
	return &identity.Account{
		HomeAccountID:  identity.HomeAccountID(objectID, "tenant-1"),
		LocalAccountID: objectID,
		TenantID:       "tenant-1",
		Environment:    "login.microsoftonline.com",
		Username:       objectID + "@contoso.com",
		Name:           name,
	}
}
