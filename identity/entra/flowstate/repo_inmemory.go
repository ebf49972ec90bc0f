package flowstate

import (
	"errors"
	"slices"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]*AuthFlowState
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*AuthFlowState),
	}
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to prevent external modifications
	r.states[state] = clone(authState)
	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, errors.New("state not found")
	}

	// Return a copy to prevent external modifications
	return clone(authState), nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func clone(s *AuthFlowState) *AuthFlowState {
	return &AuthFlowState{
		CodeVerifier: s.CodeVerifier,
		Nonce:        s.Nonce,
		RedirectURI:  s.RedirectURI,
		Scopes:       slices.Clone(s.Scopes),
		CreatedAt:    s.CreatedAt,
	}
}
