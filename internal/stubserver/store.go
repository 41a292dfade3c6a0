package stubserver

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a sql.DB holding the stub backend's state: the settings
// document with its timestamp, the admin password hash, and live sessions.
type Store struct {
	*sql.DB
	path string
}

// seedSettings is the configuration document a fresh store starts with.
const seedSettings = `<SiteSettings last_modified="1" backup_duration="600" auto_add="true">
  <GlobalSetting max_url_life="365" max_url_in_memory="100000">
    <WebSitemapSetting enabled="true" compress="true" update_duration="86400"/>
    <NewsSitemapSetting enabled="false" update_duration="900"/>
  </GlobalSetting>
</SiteSettings>`

// Open creates or opens a SQLite database at the given path. seedPassword
// is the admin password a fresh store starts with; empty means "admin". It
// does not overwrite a password already stored.
func Open(path, seedPassword string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{DB: sqlDB, path: path}
	if err := s.migrate(seedPassword); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenMemory creates an in-memory store (useful for testing).
func OpenMemory(seedPassword string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	s := &Store{DB: sqlDB, path: ":memory:"}
	if err := s.migrate(seedPassword); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(seedPassword string) error {
	if _, err := s.Exec(schema); err != nil {
		return err
	}
	if seedPassword == "" {
		seedPassword = "admin"
	}
	// Seed the single settings row and default account on first run.
	if _, err := s.Exec(
		`INSERT OR IGNORE INTO settings (id, xml, ts) VALUES (1, ?, '1')`,
		seedSettings,
	); err != nil {
		return err
	}
	_, err := s.Exec(
		`INSERT OR IGNORE INTO accounts (username, password_hash) VALUES ('admin', ?)`,
		hashPassword(seedPassword),
	)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK(id = 1),
    xml TEXT NOT NULL,
    ts TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    username TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    sid TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// Settings returns the stored document and its timestamp.
func (s *Store) Settings() (xml, ts string, err error) {
	err = s.QueryRow(`SELECT xml, ts FROM settings WHERE id = 1`).Scan(&xml, &ts)
	if err != nil {
		return "", "", fmt.Errorf("loading settings: %w", err)
	}
	return xml, ts, nil
}

// SaveSettings stores a new document and bumps the timestamp. The new
// timestamp is returned.
func (s *Store) SaveSettings(xml string) (string, error) {
	_, ts, err := s.Settings()
	if err != nil {
		return "", err
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		n = 0
	}
	newTS := strconv.FormatInt(n+1, 10)
	if _, err := s.Exec(`UPDATE settings SET xml = ?, ts = ? WHERE id = 1`, xml, newTS); err != nil {
		return "", fmt.Errorf("saving settings: %w", err)
	}
	return newTS, nil
}

// SetPassword replaces the admin password if old matches.
func (s *Store) SetPassword(username, old, newPw string) error {
	var stored string
	err := s.QueryRow(`SELECT password_hash FROM accounts WHERE username = ?`, username).Scan(&stored)
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}
	if stored != hashPassword(old) {
		return errWrongPassword
	}
	if _, err := s.Exec(`UPDATE accounts SET password_hash = ? WHERE username = ?`, hashPassword(newPw), username); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// CheckPassword reports whether the credentials match a stored account.
func (s *Store) CheckPassword(username, pw string) (bool, error) {
	var stored string
	err := s.QueryRow(`SELECT password_hash FROM accounts WHERE username = ?`, username).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading account: %w", err)
	}
	return stored == hashPassword(pw), nil
}

// CreateSession mints and records a new session id.
func (s *Store) CreateSession() (string, error) {
	sid := uuid.NewString()
	if _, err := s.Exec(`INSERT INTO sessions (sid) VALUES (?)`, sid); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return sid, nil
}

// HasSession reports whether the session id is live.
func (s *Store) HasSession(sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}
	var one int
	err := s.QueryRow(`SELECT 1 FROM sessions WHERE sid = ?`, sid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return true, nil
}

// DeleteSession removes a session id; removing an unknown id is a no-op.
func (s *Store) DeleteSession(sid string) error {
	if _, err := s.Exec(`DELETE FROM sessions WHERE sid = ?`, sid); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
