package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	OAuthConfig
	QueryConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogFile() string
	GetLogLevel() string
	GetOtelEndpoint() string
	GetOtelEnabled() bool
}

type OAuthConfig interface {
	GetClientID() string
	GetAuthority() string
	GetRedirectURI() string
	GetPostLogoutRedirectURI() string
	GetLoginTimeout() time.Duration
	GetLoginScopes() []string
	GetProfileScopes() []string
	GetAnalyticsScopes() []string
}

type QueryConfig interface {
	GetAPIURL() string
	GetDatasetID() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Query
}

// New reads the configuration from the environment. ENTRA_CLIENT_ID and
// ENTRA_AUTHORITY are required; everything else has a default.
func New() (Config, error) {
	c := mainConfig{}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config New] parse env: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Authority); err != nil {
		return nil, fmt.Errorf("[config New] invalid %s %q: %w", authorityEnvVar, c.Authority, err)
	}
	if _, err := url.ParseRequestURI(c.RedirectURI); err != nil {
		return nil, fmt.Errorf("[config New] invalid %s %q: %w", redirectURIEnvVar, c.RedirectURI, err)
	}
	return c, nil
}
