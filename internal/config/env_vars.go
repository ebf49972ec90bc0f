package config

import "strings"

type EnvVars struct {
	AppName      string `env:"APP_NAME" envDefault:"Entra Query"`
	Env          string `env:"ENV" envDefault:"DEV"`
	LogFile      string `env:"LOG_FILE" envDefault:"entraquery.log"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OtelEndpoint string `env:"ENTRAQUERY_OTEL_ENDPOINT"`
	OtelEnabled  string `env:"ENTRAQUERY_OTEL_ENABLED"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetLogFile() string {
	return e.LogFile
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetOtelEndpoint() string {
	return e.OtelEndpoint
}

// GetOtelEnabled reports whether tracing should be exported. Tracing is
// opt-in: it needs an endpoint and must not be switched off explicitly.
func (e EnvVars) GetOtelEnabled() bool {
	if strings.EqualFold(e.OtelEnabled, "false") {
		return false
	}
	return e.OtelEndpoint != ""
}
