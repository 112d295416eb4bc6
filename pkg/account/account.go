// Package account defines player accounts and the credential store
// contract. Storage backends live in pkg/boltstore and pkg/sqlstore.
package account

import (
	"errors"
	"time"
)

var (
	// ErrExists is returned by Create when the account name is taken.
	ErrExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// name or a wrong password. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Hash schemes. New accounts always use argon2i; crypt marks records
// imported from an old DES-crypt server, upgraded in place on first
// successful login.
const (
	SchemeArgon2i = "argon2i"
	SchemeCrypt   = "crypt"
)

// Account is one registered player. Salt and Hash are opaque credential
// material; the cleartext password is never stored.
type Account struct {
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Valid     bool      `json:"valid"`
	Scheme    string    `json:"scheme"`
	Salt      []byte    `json:"salt,omitempty"`
	Hash      []byte    `json:"hash,omitempty"`
	CryptHash string    `json:"crypt_hash,omitempty"`
	Created   time.Time `json:"created"`
	LastSeen  time.Time `json:"lastseen"`
}

// Store is the credential store contract the session engine depends on.
//
// Create fails with ErrExists when the name is taken; any other error is
// a storage failure. Authenticate fails with ErrInvalidCredentials when
// the name is unknown or the password does not verify; implementations
// refresh LastSeen (and upgrade legacy hashes) on success.
type Store interface {
	Create(name, password string) (*Account, error)
	Authenticate(name, password string) (*Account, error)
	Close() error
}

// New builds a fresh argon2i account record for the given credentials.
func New(name, password string) (*Account, error) {
	salt, hash, err := newCredential(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Account{
		Name:     name,
		Valid:    false,
		Scheme:   SchemeArgon2i,
		Salt:     salt,
		Hash:     hash,
		Created:  now,
		LastSeen: now,
	}, nil
}
