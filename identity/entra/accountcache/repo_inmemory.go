package accountcache

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
)

// InMemoryRepo keeps accounts for the lifetime of the process only.
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]Entry // lower-cased homeAccountID -> Entry
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory account cache
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		entries: make(map[string]Entry),
	}
}

// Upsert creates or updates an account entry
func (r *InMemoryRepo) Upsert(homeAccountID string, entry Entry) error {
	if homeAccountID == "" {
		return fmt.Errorf("homeAccountID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[strings.ToLower(homeAccountID)] = entry
	return nil
}

// Get retrieves an account entry by home account id
func (r *InMemoryRepo) Get(homeAccountID string) (Entry, error) {
	if homeAccountID == "" {
		return Entry{}, fmt.Errorf("homeAccountID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[strings.ToLower(homeAccountID)]
	if !ok {
		return Entry{}, apperrors.Wrapf(apperrors.ErrNotFound, "account %s", homeAccountID)
	}
	return entry, nil
}

// Delete removes an account entry
func (r *InMemoryRepo) Delete(homeAccountID string) error {
	if homeAccountID == "" {
		return fmt.Errorf("homeAccountID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, strings.ToLower(homeAccountID)) // Already doesn't exist, no error
	return nil
}

// List returns all entries, oldest first
func (r *InMemoryRepo) List() ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}
