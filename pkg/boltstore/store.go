// Package boltstore implements the account.Store contract on top of a
// bbolt database file. Records are JSON-encoded under the accounts
// bucket, keyed by account name.
package boltstore

import (
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/ember-mud/embermud/pkg/account"
)

var bucketAccounts = []byte("accounts")

// Store is a bbolt-backed credential store.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures the accounts
// bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAccounts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create bucket: %w", err)
	}
	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying database file.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// Create registers a new account. The existence check and the insert run
// in one write transaction, so concurrent Creates for the same name
// cannot both succeed.
func (s *Store) Create(name, password string) (*account.Account, error) {
	acct, err := account.New(name, password)
	if err != nil {
		return nil, fmt.Errorf("boltstore: hashing credentials: %w", err)
	}
	err = s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b.Get([]byte(name)) != nil {
			return account.ErrExists
		}
		data, err := json.Marshal(acct)
		if err != nil {
			return fmt.Errorf("encode account %q: %w", name, err)
		}
		return b.Put([]byte(name), data)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Authenticate verifies the password for an existing account, refreshing
// LastSeen and upgrading legacy hashes on success. Unknown names and bad
// passwords both return account.ErrInvalidCredentials.
func (s *Store) Authenticate(name, password string) (*account.Account, error) {
	var acct account.Account
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		data := b.Get([]byte(name))
		if data == nil {
			return account.ErrInvalidCredentials
		}
		if err := json.Unmarshal(data, &acct); err != nil {
			return fmt.Errorf("decode account %q: %w", name, err)
		}
		if !acct.VerifyAndRefresh(password) {
			return account.ErrInvalidCredentials
		}
		acct.LastSeen = time.Now()
		updated, err := json.Marshal(&acct)
		if err != nil {
			return fmt.Errorf("encode account %q: %w", name, err)
		}
		return b.Put([]byte(name), updated)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

var _ account.Store = (*Store)(nil)
