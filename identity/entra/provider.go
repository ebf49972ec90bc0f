package entra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-entra-query/identity"
	"github.com/jrsteele09/go-entra-query/identity/entra/accountcache"
	"github.com/jrsteele09/go-entra-query/identity/entra/flowstate"
	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/jrsteele09/go-entra-query/oauthmodel"
	"golang.org/x/oauth2"
)

// Authorities that accept users from more than one tenant. Their discovery
// document advertises a templated issuer, so the issuer check is skipped.
var multiTenantAuthorities = []string{"common", "organizations", "consumers"}

// Config identifies the application registration and where it signs in.
type Config struct {
	ClientID              string
	Authority             string // e.g. https://login.microsoftonline.com/<tenant>
	RedirectURI           string // Loopback URI; port 0 picks a free port per sign-in
	PostLogoutRedirectURI string
	LoginTimeout          time.Duration
}

// Provider is an identity.Provider for Microsoft Entra ID and other OpenID
// Connect v2.0 authorities. It signs in with the authorization code flow and
// PKCE through the system browser, and keeps signed-in accounts in memory.
type Provider struct {
	cfg                Config
	oidcProvider       *oidc.Provider
	verifier           *oidc.IDTokenVerifier
	endSessionEndpoint string
	environment        string

	accounts   accountcache.Repo
	flows      flowstate.Repo
	navigator  Navigator
	httpClient *http.Client
	nowTime    func() time.Time

	mu     sync.RWMutex
	active *identity.Account
}

var _ identity.Provider = (*Provider)(nil)

// Option defines a function type to modify the Provider instance.
type Option func(*Provider)

// WithNavigator sets how URLs are opened for the user.
func WithNavigator(n Navigator) Option {
	return func(p *Provider) {
		p.navigator = n
	}
}

// WithHTTPClient sets the client used for discovery and token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// WithAccountCache replaces the in-memory account cache.
func WithAccountCache(repo accountcache.Repo) Option {
	return func(p *Provider) {
		p.accounts = repo
	}
}

// New discovers the authority's OpenID configuration and returns a provider
// ready to sign in.
func New(ctx context.Context, cfg Config, options ...Option) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[entra New] client id is required")
	}
	authority, err := url.Parse(strings.TrimRight(cfg.Authority, "/"))
	if err != nil || authority.Host == "" {
		return nil, fmt.Errorf("[entra New] invalid authority %q", cfg.Authority)
	}
	if _, err := url.ParseRequestURI(cfg.RedirectURI); err != nil {
		return nil, fmt.Errorf("[entra New] %w: %v", oauthmodel.ErrInvalidRedirectUri, err)
	}

	p := &Provider{
		cfg:         cfg,
		environment: authority.Host,
		accounts:    accountcache.NewInMemoryRepo(),
		flows:       flowstate.NewInMemoryRepo(),
		navigator:   NewBrowserNavigator(),
		httpClient:  http.DefaultClient,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}

	issuer := authority.String() + "/v2.0"
	tenant := authority.Path[strings.LastIndex(authority.Path, "/")+1:]
	multiTenant := slices.Contains(multiTenantAuthorities, strings.ToLower(tenant))

	discoveryCtx := p.clientContext(ctx)
	if multiTenant {
		templated := authority.Scheme + "://" + authority.Host + "/{tenantid}/v2.0"
		discoveryCtx = oidc.InsecureIssuerURLContext(discoveryCtx, templated)
	}

	provider, err := oidc.NewProvider(discoveryCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[entra New] failed to create OIDC provider: %w", err)
	}

	var metadata struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return nil, fmt.Errorf("[entra New] failed to read provider metadata: %w", err)
	}

	p.oidcProvider = provider
	p.endSessionEndpoint = metadata.EndSessionEndpoint
	p.verifier = provider.Verifier(&oidc.Config{
		ClientID:        cfg.ClientID,
		SkipIssuerCheck: multiTenant,
		Now:             p.nowTime,
	})
	return p, nil
}

func (p *Provider) GetActiveAccount() *identity.Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

func (p *Provider) SetActiveAccount(account *identity.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = account
}

// clientContext carries the provider's HTTP client to go-oidc and x/oauth2.
func (p *Provider) clientContext(ctx context.Context) context.Context {
	ctx = oidc.ClientContext(ctx, p.httpClient)
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// oauth2Config is built per request because the scopes and, with an
// ephemeral loopback port, the redirect URI differ between requests.
func (p *Provider) oauth2Config(scopes []string, redirectURI string) *oauth2.Config {
	endpoint := p.oidcProvider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams // Public client, no secret
	return &oauth2.Config{
		ClientID:    p.cfg.ClientID,
		Endpoint:    endpoint,
		RedirectURL: redirectURI,
		Scopes:      oauthmodel.WithOIDCScopes(scopes),
	}
}

// idTokenClaims are the Entra ID token claims an Account is built from.
type idTokenClaims struct {
	Subject           string `json:"sub"`
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	LoginHint         string `json:"login_hint"`
	Nonce             string `json:"nonce"`
}

// verifyIDToken checks the signature, audience and expiry of rawIDToken and,
// when nonce is set, that it answers this sign-in.
func (p *Provider) verifyIDToken(ctx context.Context, rawIDToken, nonce string) (*idTokenClaims, error) {
	idToken, err := p.verifier.Verify(p.clientContext(ctx), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}
	if nonce != "" && claims.Nonce != nonce {
		return nil, apperrors.ErrNonceMismatch
	}
	return &claims, nil
}

func (p *Provider) accountFromClaims(claims *idTokenClaims) *identity.Account {
	objectID := claims.ObjectID
	if objectID == "" {
		objectID = claims.Subject
	}
	return &identity.Account{
		HomeAccountID:  identity.HomeAccountID(objectID, claims.TenantID),
		LocalAccountID: objectID,
		TenantID:       claims.TenantID,
		Environment:    p.environment,
		Username:       claims.PreferredUsername,
		Name:           claims.Name,
	}
}

// cacheAccount stores account with its refresh token, keeping the original
// creation time when the account was already known.
func (p *Provider) cacheAccount(account *identity.Account, refreshToken, loginHint string) error {
	now := p.nowTime()
	entry := accountcache.Entry{
		Account:      *account,
		RefreshToken: refreshToken,
		LoginHint:    loginHint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := p.accounts.Get(account.HomeAccountID); err == nil {
		entry.CreatedAt = existing.CreatedAt
		if entry.RefreshToken == "" {
			entry.RefreshToken = existing.RefreshToken
		}
		if entry.LoginHint == "" {
			entry.LoginHint = existing.LoginHint
		}
	}
	return p.accounts.Upsert(account.HomeAccountID, entry)
}
