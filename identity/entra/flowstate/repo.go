package flowstate

import "time"

// AuthFlowState is what an interactive sign-in needs to finish once the
// browser comes back to the redirect URI.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	RedirectURI  string
	Scopes       []string
	CreatedAt    time.Time
}

// Repo stores pending flows keyed by the state parameter.
type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
}
