// Package sqlstore implements the account.Store contract on a SQLite3
// database, for deployments that want the account table queryable with
// ordinary SQL tooling.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ember-mud/embermud/pkg/account"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	name       TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	valid      INTEGER NOT NULL DEFAULT 0,
	scheme     TEXT NOT NULL,
	salt       BLOB,
	hash       BLOB,
	crypt_hash TEXT NOT NULL DEFAULT '',
	created    INTEGER NOT NULL,
	lastseen   INTEGER NOT NULL
)`

// Store is a SQLite-backed credential store. Access is serialized by a
// mutex; account traffic is light enough that a single writer is fine
// and it keeps check-then-insert atomic without relying on driver error
// strings.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	timeout time.Duration
}

// Open opens a SQLite3 database, sets WAL mode and busy timeout, and
// creates the accounts table if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: creating schema: %w", err)
	}
	return &Store{db: db, timeout: 5 * time.Second}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create registers a new account.
func (s *Store) Create(name, password string) (*account.Account, error) {
	acct, err := account.New(name, password)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: hashing credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT name FROM accounts WHERE name = ?", name).Scan(&existing)
	switch {
	case err == nil:
		return nil, account.ErrExists
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("sqlstore: lookup %q: %w", name, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO accounts (name, email, valid, scheme, salt, hash, crypt_hash, created, lastseen) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		acct.Name, acct.Email, boolToInt(acct.Valid), acct.Scheme, acct.Salt, acct.Hash,
		acct.CryptHash, acct.Created.Unix(), acct.LastSeen.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: insert %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlstore: commit %q: %w", name, err)
	}
	return acct, nil
}

// Authenticate verifies the password for an existing account, refreshing
// LastSeen and upgrading legacy hashes on success.
func (s *Store) Authenticate(name, password string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var (
		acct              account.Account
		valid             int
		created, lastseen int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT name, email, valid, scheme, salt, hash, crypt_hash, created, lastseen FROM accounts WHERE name = ?",
		name).Scan(&acct.Name, &acct.Email, &valid, &acct.Scheme, &acct.Salt, &acct.Hash,
		&acct.CryptHash, &created, &lastseen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: lookup %q: %w", name, err)
	}
	acct.Valid = valid != 0
	acct.Created = time.Unix(created, 0)
	acct.LastSeen = time.Unix(lastseen, 0)

	if !acct.VerifyAndRefresh(password) {
		return nil, account.ErrInvalidCredentials
	}
	acct.LastSeen = time.Now()

	_, err = s.db.ExecContext(ctx,
		"UPDATE accounts SET scheme = ?, salt = ?, hash = ?, crypt_hash = ?, lastseen = ? WHERE name = ?",
		acct.Scheme, acct.Salt, acct.Hash, acct.CryptHash, acct.LastSeen.Unix(), acct.Name)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: update %q: %w", name, err)
	}
	return &acct, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ account.Store = (*Store)(nil)
