package entra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-entra-query/identity"
	"github.com/jrsteele09/go-entra-query/identity/entra/flowstate"
	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/jrsteele09/go-entra-query/oauthmodel"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	signedInPage    = "Signed in. You can close this window and return to the application."
)

type callbackResult struct {
	result *identity.AuthenticationResult
	err    error
}

// LoginPopup signs in interactively. It listens on the loopback redirect URI,
// opens the authorization URL through the Navigator and waits for the browser
// to come back, the login timeout, or ctx.
func (p *Provider) LoginPopup(ctx context.Context, scopes []string) (*identity.AuthenticationResult, error) {
	if p.cfg.LoginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.LoginTimeout)
		defer cancel()
	}

	redirect, err := url.Parse(p.cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("[LoginPopup] %w: %v", oauthmodel.ErrInvalidRedirectUri, err)
	}

	listenAddr := redirect.Host
	if redirect.Port() == "" {
		listenAddr = net.JoinHostPort(redirect.Hostname(), "0")
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("[LoginPopup] listen on redirect uri: %w", err)
	}
	redirectURI := loopbackRedirectURI(redirect, listener.Addr())

	state := uuid.New().String()
	nonce := uuid.New().String()
	verifier := oauth2.GenerateVerifier()
	if err := p.flows.Upsert(state, &flowstate.AuthFlowState{
		CodeVerifier: verifier,
		Nonce:        nonce,
		RedirectURI:  redirectURI,
		Scopes:       scopes,
		CreatedAt:    p.nowTime(),
	}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("[LoginPopup] failed to store auth flow: %w", err)
	}
	defer p.flows.Delete(state)

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler: chainMiddleware(p.callbackHandler(ctx, redirect.Path, results),
			recoverMiddleware,
			loggingMiddleware,
			securityHeadersMiddleware,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Loopback callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := p.oauth2Config(scopes, redirectURI).AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", string(oauthmodel.SelectAccountPrompt)),
		oauth2.SetAuthURLParam("response_mode", string(oauthmodel.QueryResponseMode)),
	)
	log.Debug().Str("redirect_uri", redirectURI).Msg("Opening interactive sign-in")
	if err := p.navigator.Navigate(ctx, authURL); err != nil {
		return nil, fmt.Errorf("[LoginPopup] open browser: %w", err)
	}

	select {
	case r := <-results:
		return r.result, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.ErrLoginTimeout
		}
		return nil, ctx.Err()
	}
}

// loopbackRedirectURI replaces an ephemeral port in the configured redirect
// URI with the one actually bound.
func loopbackRedirectURI(configured *url.URL, bound net.Addr) string {
	u := *configured
	if u.Port() == "0" || u.Port() == "" {
		if tcp, ok := bound.(*net.TCPAddr); ok {
			u.Host = net.JoinHostPort(u.Hostname(), fmt.Sprint(tcp.Port))
		}
	}
	return u.String()
}

// callbackHandler completes the sign-in when the browser returns to the
// redirect URI. Only the first outcome is delivered on results.
func (p *Provider) callbackHandler(ctx context.Context, path string, results chan<- callbackResult) http.HandlerFunc {
	if path == "" {
		path = "/"
	}
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		// Parse form to support both GET (query params) and POST (form_post response mode)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid callback parameters", http.StatusBadRequest)
			return
		}

		// Not an authorization response, such as a reload of the redirect URI.
		if r.Form.Get("state") == "" && r.Form.Get("error") == "" {
			http.Error(w, "Not an authorization response", http.StatusBadRequest)
			return
		}

		result, err := p.completeLogin(ctx, r.Form)
		if err != nil {
			log.Err(err).Msg("Interactive sign-in callback failed")
			w.Header().Set("Content-Type", contentTypeText)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Sign-in failed: %v\n", err)
			deliver(callbackResult{err: err})
			return
		}

		w.Header().Set("Content-Type", contentTypeText)
		fmt.Fprintln(w, signedInPage)
		deliver(callbackResult{result: result})
	}
}

// completeLogin validates the callback parameters, redeems the code and
// verifies the ID token against the pending flow.
func (p *Provider) completeLogin(ctx context.Context, values url.Values) (*identity.AuthenticationResult, error) {
	code, state, err := oauthmodel.ParseAuthorizationResponse(values)
	if err != nil {
		var authErr *oauthmodel.AuthorizationError
		if errors.As(err, &authErr) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthorizationDenied, authErr)
		}
		return nil, err
	}

	flow, err := p.flows.Get(state)
	if err != nil {
		return nil, apperrors.ErrStateMismatch
	}
	// Clean up state after use
	if err := p.flows.Delete(state); err != nil {
		return nil, fmt.Errorf("failed to clear auth flow: %w", err)
	}

	token, err := p.oauth2Config(flow.Scopes, flow.RedirectURI).Exchange(
		p.clientContext(ctx),
		code,
		oauth2.VerifierOption(flow.CodeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperrors.ErrNoIDToken
	}
	claims, err := p.verifyIDToken(ctx, rawIDToken, flow.Nonce)
	if err != nil {
		return nil, err
	}

	account := p.accountFromClaims(claims)
	if err := p.cacheAccount(account, token.RefreshToken, claims.LoginHint); err != nil {
		return nil, fmt.Errorf("failed to cache account: %w", err)
	}

	return &identity.AuthenticationResult{
		Account:     account,
		AccessToken: token.AccessToken,
		IDToken:     rawIDToken,
		TokenType:   token.Type(),
		Scopes:      grantedScopes(token.Extra("scope"), flow.Scopes),
		ExpiresOn:   token.Expiry,
	}, nil
}
