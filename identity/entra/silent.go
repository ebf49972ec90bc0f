package entra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/go-entra-query/identity"
	"github.com/jrsteele09/go-entra-query/identity/entra/accountcache"
	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/jrsteele09/go-entra-query/oauthmodel"
	"github.com/pkg/errors"
)

// Token endpoint error codes that mean the user has to sign in again.
var interactionRequiredCodes = []string{"invalid_grant", "interaction_required", "login_required", "consent_required"}

// SSOSilent signs in with an account the provider already holds: the active
// account, or the only cached one. Anything else needs interaction.
func (p *Provider) SSOSilent(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error) {
	entry, err := p.silentCandidate()
	if err != nil {
		return nil, err
	}
	return p.redeemRefreshToken(ctx, entry, scopes)
}

// AcquireTokenSilent redeems the account's refresh token for the requested
// scopes. Entra issues tokens for any resource the app is consented for, so
// one refresh token serves both the profile and the analytics scopes.
func (p *Provider) AcquireTokenSilent(ctx context.Context, request identity.SilentRequest) (*identity.AuthenticationResult, error) {
	if request.Account == nil {
		return nil, apperrors.ErrNoActiveAccount
	}
	entry, err := p.accounts.Get(request.Account.HomeAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInteractionRequired, err)
	}
	return p.redeemRefreshToken(ctx, entry, request.Scopes)
}

func (p *Provider) silentCandidate() (accountcache.Entry, error) {
	if active := p.GetActiveAccount(); active != nil {
		if entry, err := p.accounts.Get(active.HomeAccountID); err == nil {
			return entry, nil
		}
	}
	entries, err := p.accounts.List()
	if err != nil {
		return accountcache.Entry{}, errors.Wrap(err, "[SSOSilent] list accounts")
	}
	if len(entries) != 1 {
		return accountcache.Entry{}, apperrors.ErrInteractionRequired
	}
	return entries[0], nil
}

// tokenErrorResponse is the error body of the token endpoint (RFC 6749 5.2).
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	SubError         string `json:"suberror"`
}

// redeemRefreshToken runs the refresh_token grant. x/oauth2's token source
// does not send a scope on refresh, which Entra needs to switch resources,
// so the request is made directly.
func (p *Provider) redeemRefreshToken(ctx context.Context, entry accountcache.Entry, scopes []string) (*identity.AuthenticationResult, error) {
	if entry.RefreshToken == "" {
		return nil, apperrors.ErrInteractionRequired
	}

	form := url.Values{
		"client_id":     {p.cfg.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {entry.RefreshToken},
		"scope":         {oauthmodel.ScopeString(oauthmodel.WithOIDCScopes(scopes))},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.oidcProvider.Endpoint().TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[redeemRefreshToken] new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[redeemRefreshToken] token request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "[redeemRefreshToken] read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var tokenErr tokenErrorResponse
		_ = json.Unmarshal(body, &tokenErr)
		authErr := &oauthmodel.AuthorizationError{Code: tokenErr.Error, Description: tokenErr.ErrorDescription}
		if slices.Contains(interactionRequiredCodes, tokenErr.Error) || tokenErr.SubError != "" {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInteractionRequired, authErr)
		}
		return nil, fmt.Errorf("%w: %v", &apperrors.StatusError{StatusCode: resp.StatusCode, Code: tokenErr.Error, Message: tokenErr.ErrorDescription}, authErr)
	}

	var token oauthmodel.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: token response: %v", apperrors.ErrMalformedResponse, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", apperrors.ErrMalformedResponse)
	}

	account := entry.Account
	loginHint := ""
	if token.IdToken != "" {
		claims, err := p.verifyIDToken(ctx, token.IdToken, "")
		if err != nil {
			return nil, err
		}
		refreshed := p.accountFromClaims(claims)
		if !refreshed.Equal(&account) {
			return nil, fmt.Errorf("%w: refreshed token belongs to a different account", apperrors.ErrInteractionRequired)
		}
		account = *refreshed
		loginHint = claims.LoginHint
	}

	// Keep the rotated refresh token; the old one may already be invalid.
	if err := p.cacheAccount(&account, token.RefreshToken, loginHint); err != nil {
		return nil, errors.Wrap(err, "[redeemRefreshToken] cache account")
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &identity.AuthenticationResult{
		Account:     &account,
		AccessToken: token.AccessToken,
		IDToken:     token.IdToken,
		TokenType:   tokenType,
		Scopes:      grantedScopes(token.Scope, scopes),
		ExpiresOn:   p.nowTime().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

// grantedScopes returns the scopes the server reported, or the requested ones
// when it reported none.
func grantedScopes(reported any, requested []string) []string {
	if s, ok := reported.(string); ok && strings.TrimSpace(s) != "" {
		return strings.Fields(s)
	}
	return slices.Clone(requested)
}
