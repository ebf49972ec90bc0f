package entra

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jrsteele09/go-entra-query/identity"
	"github.com/rs/zerolog/log"
)

var errNoEndSessionEndpoint = errors.New("provider does not advertise an end_session_endpoint")

// LogoutRedirect forgets the account locally and sends the user to the
// provider's sign-out page, unless OnRedirectNavigate declines.
func (p *Provider) LogoutRedirect(ctx context.Context, request identity.LogoutRequest) error {
	account := request.Account
	if account == nil {
		account = p.GetActiveAccount()
	}

	var loginHint string
	if account != nil {
		if entry, err := p.accounts.Get(account.HomeAccountID); err == nil {
			loginHint = entry.LoginHint
		}
		if err := p.accounts.Delete(account.HomeAccountID); err != nil {
			return fmt.Errorf("[LogoutRedirect] remove account: %w", err)
		}
	}
	if active := p.GetActiveAccount(); active == nil || active.Equal(account) {
		p.SetActiveAccount(nil)
	}

	logoutURL, err := p.logoutURL(loginHint)
	if err != nil {
		return err
	}
	if request.OnRedirectNavigate != nil && !request.OnRedirectNavigate(logoutURL) {
		log.Debug().Msg("Logout navigation skipped")
		return nil
	}
	return p.navigator.Navigate(ctx, logoutURL)
}

func (p *Provider) logoutURL(loginHint string) (string, error) {
	if p.endSessionEndpoint == "" {
		return "", errNoEndSessionEndpoint
	}
	u, err := url.Parse(p.endSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("[LogoutRedirect] invalid end_session_endpoint: %w", err)
	}

	q := u.Query()
	q.Set("client_id", p.cfg.ClientID)
	if redirect := p.postLogoutRedirectURI(); redirect != "" {
		q.Set("post_logout_redirect_uri", redirect)
	}
	if loginHint != "" {
		q.Set("logout_hint", loginHint)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) postLogoutRedirectURI() string {
	if p.cfg.PostLogoutRedirectURI != "" {
		return p.cfg.PostLogoutRedirectURI
	}
	return p.cfg.RedirectURI
}
