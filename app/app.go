package app

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/jrsteele09/go-entra-query/query"
	"github.com/jrsteele09/go-entra-query/sessions"
	"github.com/jrsteele09/go-entra-query/token"
	"github.com/rs/zerolog/log"
)

// Scopes are the fixed scope sets the actions request tokens for.
type Scopes interface {
	GetProfileScopes() []string
	GetAnalyticsScopes() []string
}

// QueryRunner executes a query with a bearer token.
type QueryRunner interface {
	ExecuteQuery(ctx context.Context, queryText, accessToken string) (*query.Result, error)
}

// App holds the actions behind the user-facing buttons.
type App struct {
	controller *sessions.Controller
	queries    QueryRunner
	scopes     Scopes

	mu        sync.RWMutex
	lastTable string
	// logouts counts sign-outs so a query that outlives one is not kept.
	logouts uint64
}

// New initializes an App with required dependencies.
func New(controller *sessions.Controller, queries QueryRunner, scopes Scopes) (*App, error) {
	if controller == nil {
		return nil, errors.New("[app New] controller is required")
	}
	if queries == nil {
		return nil, errors.New("[app New] query runner is required")
	}
	if scopes == nil {
		return nil, errors.New("[app New] scopes are required")
	}
	return &App{
		controller: controller,
		queries:    queries,
		scopes:     scopes,
	}, nil
}

// Start picks up a session the identity provider already holds.
func (a *App) Start() bool {
	return a.controller.CheckExistingSession()
}

func (a *App) Login(ctx context.Context) error {
	return a.controller.Login(ctx)
}

// ShowTokenInfo acquires a profile token and describes it.
func (a *App) ShowTokenInfo(ctx context.Context) (string, error) {
	result, err := a.controller.AcquireToken(ctx, a.scopes.GetProfileScopes())
	if err != nil {
		log.Err(err).Msg("Failed to acquire token")
		return "", err
	}
	log.Debug().Time("expires_on", result.ExpiresOn).Msg("Acquired profile token")
	return token.Describe(result.AccessToken), nil
}

// Query acquires an analytics token, runs queryText and formats the rows.
// The table replaces the previous one only when the query succeeds and no
// logout happened while it ran.
func (a *App) Query(ctx context.Context, queryText string) (string, error) {
	a.mu.RLock()
	generation := a.logouts
	a.mu.RUnlock()

	result, err := a.controller.AcquireToken(ctx, a.scopes.GetAnalyticsScopes())
	if err != nil {
		log.Err(err).Msg("Failed to acquire analytics token")
		return "", err
	}

	rows, err := a.queries.ExecuteQuery(ctx, queryText, result.AccessToken)
	if err != nil {
		log.Err(err).Msg("Query failed")
		return "", err
	}

	table := query.FormatAsTable(rows.Rows)
	log.Info().Int("rows", len(rows.Rows)).Msg("Query succeeded")

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.logouts != generation {
		log.Info().Msg("Discarding query result, the session ended while it ran")
		return "", apperrors.New(apperrors.KindQuery, "Query", apperrors.ErrNoActiveAccount)
	}
	a.lastTable = table
	return table, nil
}

// LastTable is the table of the last successful query.
func (a *App) LastTable() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastTable
}

// Logout signs out (see sessions.Controller.Logout) and drops the last table
// so the next user does not see it.
func (a *App) Logout(ctx context.Context) <-chan error {
	a.mu.Lock()
	a.lastTable = ""
	a.logouts++
	a.mu.Unlock()
	return a.controller.Logout(ctx)
}

func (a *App) Session() sessions.Session {
	return a.controller.Store().Session()
}

// Subscribe registers fn for every session change.
func (a *App) Subscribe(fn func(sessions.Session)) {
	a.controller.Store().Subscribe(fn)
}
