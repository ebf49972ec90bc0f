package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-entra-query/app"
	"github.com/jrsteele09/go-entra-query/identity/entra"
	"github.com/jrsteele09/go-entra-query/internal/config"
	"github.com/jrsteele09/go-entra-query/internal/telemetry"
	"github.com/jrsteele09/go-entra-query/query"
	"github.com/jrsteele09/go-entra-query/sessions"
	"github.com/jrsteele09/go-entra-query/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const identityRequestTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running entraquery: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	closeLog, err := setupLogging(c)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, c)
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer shutdown(shutdownTracing)

	provider, err := entra.New(ctx, entra.Config{
		ClientID:              c.GetClientID(),
		Authority:             c.GetAuthority(),
		RedirectURI:           c.GetRedirectURI(),
		PostLogoutRedirectURI: c.GetPostLogoutRedirectURI(),
		LoginTimeout:          c.GetLoginTimeout(),
	}, entra.WithHTTPClient(&http.Client{
		Timeout:   identityRequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	if err != nil {
		return err
	}

	// The UI is the notifier, and it needs the controller first.
	var screen *ui.UI
	controller, err := sessions.NewController(provider, sessions.NewStore(),
		sessions.WithLoginScopes(c.GetLoginScopes()),
		sessions.WithNotifier(sessions.NotifierFunc(func(message string) {
			if screen != nil {
				screen.Notify(message)
			}
		})),
	)
	if err != nil {
		return err
	}

	queries, err := query.NewClient(c.GetDatasetID(), query.WithBaseURL(c.GetAPIURL()))
	if err != nil {
		return err
	}

	application, err := app.New(controller, queries, c)
	if err != nil {
		return err
	}
	application.Start()

	screen, err = ui.New(ctx, c.GetAppName(), application)
	if err != nil {
		return err
	}
	log.Info().Str("env", c.GetEnv()).Str("authority", c.GetAuthority()).Msg("Starting")
	returnError = screen.Run()
	log.Info().Msg("Stopped")
	return returnError
}

// setupLogging sends the global logger to the log file; the terminal belongs
// to the UI.
func setupLogging(c config.EnvConfig) (func(), error) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.GetLogLevel(), err)
	}

	f, err := os.OpenFile(c.GetLogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(f).With().Timestamp().Str("app", c.GetAppName()).Logger()
	return func() { _ = f.Close() }, nil
}

func shutdown(shutdownTracing func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		log.Err(err).Msg("Tracing shutdown failed")
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
