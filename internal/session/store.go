package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Record is the persisted shape of the session state. The password is
// deliberately absent.
type Record struct {
	SessionID string `json:"sid,omitempty"`
	Language  string `json:"hl,omitempty"`
}

// Store reads and writes the session record at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store rooted at the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional store location,
// ~/.sitemapctl/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sitemapctl", "session.json"), nil
}

// Load reads the persisted record. A missing file yields an empty record.
func (st *Store) Load() (Record, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("reading session store: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parsing session store: %w", err)
	}
	return rec, nil
}

// Save writes the record with restricted permissions, creating the parent
// directory if needed.
func (st *Store) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0700); err != nil {
		return fmt.Errorf("creating session store directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session record: %w", err)
	}
	if err := os.WriteFile(st.path, data, 0600); err != nil {
		return fmt.Errorf("writing session store: %w", err)
	}
	return nil
}
