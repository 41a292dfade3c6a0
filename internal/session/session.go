// Package session holds the admin session state: the current session id,
// the login password (memory only), and the language tag. The id and
// language persist across invocations through a small file-backed store,
// the CLI analogue of the console's session cookie.
package session

import (
	"sync"
)

// State is the mutable session state shared by the dispatcher and the CLI.
// Construct one at startup and inject it by reference; there is no hidden
// package-level instance.
type State struct {
	mu       sync.Mutex
	id       string
	password string
	language string
	store    *Store
}

// NewState creates session state backed by the given store, seeded from
// whatever the store last persisted. A nil store keeps everything in memory.
func NewState(store *Store) (*State, error) {
	s := &State{store: store}
	if store == nil {
		return s, nil
	}
	rec, err := store.Load()
	if err != nil {
		return nil, err
	}
	s.id = rec.SessionID
	s.language = rec.Language
	return s, nil
}

// ID returns the cached session id, or "" when no session is established.
func (s *State) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID caches the session id and persists it so it survives a restart
// within the same login.
func (s *State) SetID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return s.persistLocked()
}

// ClearID drops the session id, both in memory and in the store. Used on
// logout and when the backend reports the session expired.
func (s *State) ClearID() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	return s.persistLocked()
}

// Language returns the current language tag, or "" when unset.
func (s *State) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage records and persists the language tag.
func (s *State) SetLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return s.persistLocked()
}

// SetPassword holds the password in memory for the duration of a login
// attempt. It is never written to the store.
func (s *State) SetPassword(pw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = pw
}

// Password returns the in-memory password.
func (s *State) Password() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password
}

func (s *State) persistLocked() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(Record{SessionID: s.id, Language: s.language})
}
