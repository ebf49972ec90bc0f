package config

import "time"

const (
	authorityEnvVar   = "ENTRA_AUTHORITY"
	redirectURIEnvVar = "ENTRA_REDIRECT_URI"

	// PowerBIScope grants delegated access to the Power BI REST API.
	PowerBIScope = "https://analysis.windows.net/powerbi/api/.default"
	// UserReadScope is the Microsoft Graph profile scope used for sign-in.
	UserReadScope = "User.Read"
)

type OAuth struct {
	ClientID              string        `env:"ENTRA_CLIENT_ID,required,notEmpty"`
	Authority             string        `env:"ENTRA_AUTHORITY,required,notEmpty"`
	RedirectURI           string        `env:"ENTRA_REDIRECT_URI" envDefault:"http://localhost:53682/"`
	PostLogoutRedirectURI string        `env:"ENTRA_POST_LOGOUT_REDIRECT_URI"`
	LoginTimeout          time.Duration `env:"ENTRA_LOGIN_TIMEOUT" envDefault:"2m"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetAuthority() string {
	return o.Authority
}

func (o OAuth) GetRedirectURI() string {
	return o.RedirectURI
}

// GetPostLogoutRedirectURI falls back to the redirect URI, matching how the
// application is registered with a single reply address.
func (o OAuth) GetPostLogoutRedirectURI() string {
	if o.PostLogoutRedirectURI == "" {
		return o.RedirectURI
	}
	return o.PostLogoutRedirectURI
}

func (o OAuth) GetLoginTimeout() time.Duration {
	return o.LoginTimeout
}

func (OAuth) GetLoginScopes() []string {
	return []string{UserReadScope}
}

func (OAuth) GetProfileScopes() []string {
	return []string{UserReadScope}
}

func (OAuth) GetAnalyticsScopes() []string {
	return []string{PowerBIScope}
}
