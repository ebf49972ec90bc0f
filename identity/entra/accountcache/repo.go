package accountcache

import (
	"time"

	"github.com/jrsteele09/go-entra-query/identity"
)

// Entry is a signed-in account together with what is needed to act for it
// silently.
type Entry struct {
	Account identity.Account

	// RefreshToken is redeemed for access tokens; it may rotate on each use.
	RefreshToken string

	// LoginHint is the login_hint claim of the ID token, sent as logout_hint.
	LoginHint string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repo stores accounts keyed by home account id.
type Repo interface {
	Upsert(homeAccountID string, entry Entry) error
	Get(homeAccountID string) (Entry, error)
	Delete(homeAccountID string) error
	List() ([]Entry, error)
}
