package account

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	descrypt "github.com/digitive/crypt"
	"golang.org/x/crypto/argon2"
)

// Argon2i parameters. 32-byte salt and 32-byte key.
const (
	saltLen      = 32
	hashLen      = 32
	argonPasses  = 3
	argonMemory  = 32 * 1024 // KiB
	argonThreads = 4
)

// newCredential generates a random salt and the argon2i hash of the
// password under it.
func newCredential(password string) (salt, hash []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	hash = argon2.Key([]byte(password), salt, argonPasses, argonMemory, argonThreads, hashLen)
	return salt, hash, nil
}

// Verify recomputes the stored scheme's hash from the given password and
// compares it in constant time. The cleartext is never compared directly.
func (a *Account) Verify(password string) bool {
	switch a.Scheme {
	case SchemeCrypt:
		return verifyCrypt(password, a.CryptHash)
	default:
		if len(a.Salt) == 0 || len(a.Hash) == 0 {
			return false
		}
		computed := argon2.Key([]byte(password), a.Salt, argonPasses, argonMemory, argonThreads, hashLen)
		return subtle.ConstantTimeCompare(computed, a.Hash) == 1
	}
}

// VerifyAndRefresh verifies the password and, when it matches a legacy
// crypt(3) record, rehashes the credential to argon2i in place. The
// caller persists the updated record.
func (a *Account) VerifyAndRefresh(password string) bool {
	if !a.Verify(password) {
		return false
	}
	if a.Scheme == SchemeCrypt {
		if salt, hash, err := newCredential(password); err == nil {
			a.Scheme = SchemeArgon2i
			a.Salt = salt
			a.Hash = hash
			a.CryptHash = ""
		}
	}
	return true
}

// verifyCrypt checks a password against a traditional Unix DES crypt(3)
// hash, as stored by the servers we import accounts from. The salt is
// the first two characters of the stored hash.
func verifyCrypt(password, storedHash string) bool {
	if len(storedHash) < 2 {
		return false
	}
	computed, err := descrypt.Crypt(password, storedHash[:2])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
