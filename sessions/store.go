package sessions

import "sync"

// Store holds the session state and tells subscribers about every change.
// It is the only place the session is mutated.
type Store struct {
	mu        sync.RWMutex
	session   Session
	listeners []func(Session)
}

// NewStore creates a store in the LoggedOut state.
func NewStore() *Store {
	return &Store{
		session: Session{State: LoggedOut, DisplayName: NotLoggedInName},
	}
}

// Session returns a snapshot of the current state.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Subscribe registers fn to be called after each change, outside the lock.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// transition moves to state. An empty displayName keeps the current one,
// except when entering LoggedIn where it becomes UnknownUserName.
func (s *Store) transition(state State, displayName string) Session {
	s.mu.Lock()
	if displayName == "" && state == LoggedIn {
		displayName = UnknownUserName
	}
	if displayName != "" {
		s.session.DisplayName = displayName
	}
	s.session.State = state
	s.session.IsLoggedIn = state == LoggedIn
	snapshot := s.session
	listeners := append([]func(Session){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return snapshot
}
