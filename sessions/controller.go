package sessions

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-entra-query/identity"
	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Notifier shows a blocking, user-visible message.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) {
	f(message)
}

const (
	noAccountNotice   = "Login failed. No account associated with this user."
	loginFailedNotice = "Login failed. Please try again. %s"
)

// Controller drives the sign-in state machine against an identity provider.
// Every state change goes through its Store.
type Controller struct {
	provider           identity.Provider
	store              *Store
	notifier           Notifier
	loginScopes        []string
	onRedirectNavigate func(url string) bool
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithNotifier sets where user-visible failure notices go.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithLoginScopes sets the scopes requested when signing in.
func WithLoginScopes(scopes []string) ControllerOption {
	return func(c *Controller) {
		c.loginScopes = scopes
	}
}

// WithRedirectNavigate sets the hook deciding whether logout navigates to the
// provider's sign-out page.
func WithRedirectNavigate(fn func(url string) bool) ControllerOption {
	return func(c *Controller) {
		c.onRedirectNavigate = fn
	}
}

// NewController initializes a Controller with required dependencies.
func NewController(provider identity.Provider, store *Store, options ...ControllerOption) (*Controller, error) {
	if provider == nil {
		return nil, errors.New("[NewController] provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewController] store is required")
	}

	c := &Controller{
		provider:           provider,
		store:              store,
		notifier:           NotifierFunc(func(string) {}),
		loginScopes:        []string{"User.Read"},
		onRedirectNavigate: func(string) bool { return true },
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Store returns the store the controller mutates.
func (c *Controller) Store() *Store {
	return c.store
}

// CheckExistingSession adopts the provider's active account, if it has one.
// It reports whether the session is now logged in.
func (c *Controller) CheckExistingSession() bool {
	log.Debug().Msg("Checking login status")
	account := c.provider.GetActiveAccount()
	if account == nil {
		return false
	}
	c.store.transition(LoggedIn, account.Name)
	return true
}

// Login tries a silent sign-in first and falls back to an interactive one.
// Failures end in LoggedOut, are shown through the Notifier, and are returned
// as *apperrors.Error of kind KindInteractiveAuth or KindNoAccount.
func (c *Controller) Login(ctx context.Context) error {
	c.store.transition(Transitioning, "")

	log.Info().Msg("Trying silent login")
	result, err := c.provider.SSOSilent(ctx, c.loginScopes)
	if err != nil {
		silentErr := apperrors.New(apperrors.KindSilentAuth, "ssoSilent", err)
		log.Info().Err(silentErr).Msg("Silent login failed, trying interactive login")

		result, err = c.provider.LoginPopup(ctx, c.loginScopes)
		if err != nil {
			log.Error().Err(err).Msg("Login failed")
			c.store.transition(LoggedOut, "")
			c.notifier.Notify(fmt.Sprintf(loginFailedNotice, err.Error()))
			return apperrors.New(apperrors.KindInteractiveAuth, "login", err)
		}
	}

	if result == nil || result.Account == nil {
		log.Error().Msg("Login failed (no account found)")
		c.store.transition(LoggedOut, "")
		c.notifier.Notify(noAccountNotice)
		return apperrors.New(apperrors.KindNoAccount, "login", apperrors.ErrNoAccountInResult)
	}

	c.provider.SetActiveAccount(result.Account)
	session := c.store.transition(LoggedIn, result.Account.Name)
	log.Info().Str("user", session.DisplayName).Msg("Logged in")
	return nil
}

// Logout is two-phase. The local session moves to LoggedOut before Logout
// returns. The provider sign-out then runs in the background; its failure is
// logged and sent on the returned channel but never restores the session.
// The channel is closed once the provider call has finished.
func (c *Controller) Logout(ctx context.Context) <-chan error {
	account := c.provider.GetActiveAccount()
	c.store.transition(LoggedOut, LoggedOutName)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := c.provider.LogoutRedirect(context.WithoutCancel(ctx), identity.LogoutRequest{
			Account:            account,
			OnRedirectNavigate: c.onRedirectNavigate,
		})
		if err != nil {
			log.Err(err).Msg("An error occurred during logout")
			done <- apperrors.New(apperrors.KindLogout, "logoutRedirect", err)
		}
	}()
	return done
}

// AcquireToken silently requests a token for the active account. There is no
// interactive fallback here; failures are returned as KindSilentAuth.
func (c *Controller) AcquireToken(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error) {
	account := c.provider.GetActiveAccount()
	if account == nil {
		return nil, apperrors.New(apperrors.KindSilentAuth, "acquireToken", apperrors.ErrNoActiveAccount)
	}

	result, err := c.provider.AcquireTokenSilent(ctx, identity.SilentRequest{
		Scopes:  scopes,
		Account: account,
	})
	if err != nil {
		return nil, apperrors.New(apperrors.KindSilentAuth, "acquireToken", errors.Wrap(err, "acquireTokenSilent"))
	}
	return result, nil
}
