package account

import (
	"testing"

	descrypt "github.com/digitive/crypt"
)

func TestNewAndVerify(t *testing.T) {
	a, err := New("alice", "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Scheme != SchemeArgon2i {
		t.Errorf("scheme = %q, want %q", a.Scheme, SchemeArgon2i)
	}
	if len(a.Salt) != saltLen || len(a.Hash) != hashLen {
		t.Errorf("salt/hash lengths = %d/%d, want %d/%d", len(a.Salt), len(a.Hash), saltLen, hashLen)
	}
	if !a.Verify("secret") {
		t.Error("correct password did not verify")
	}
	if a.Verify("wrong") {
		t.Error("wrong password verified")
	}
	if a.Verify("") {
		t.Error("empty password verified")
	}
}

func TestSaltsDiffer(t *testing.T) {
	a, _ := New("alice", "secret")
	b, _ := New("bob", "secret")
	if string(a.Hash) == string(b.Hash) {
		t.Error("same password produced identical hashes; salt not applied")
	}
}

func TestLegacyCryptUpgrade(t *testing.T) {
	stored, err := descrypt.Crypt("oldpass", "ab")
	if err != nil {
		t.Fatalf("crypt: %v", err)
	}
	a := &Account{Name: "carol", Scheme: SchemeCrypt, CryptHash: stored}

	if a.VerifyAndRefresh("wrong") {
		t.Fatal("wrong password verified against crypt hash")
	}
	if a.Scheme != SchemeCrypt {
		t.Fatal("failed verify must not upgrade the record")
	}

	if !a.VerifyAndRefresh("oldpass") {
		t.Fatal("correct password did not verify against crypt hash")
	}
	if a.Scheme != SchemeArgon2i {
		t.Errorf("scheme after upgrade = %q, want %q", a.Scheme, SchemeArgon2i)
	}
	if a.CryptHash != "" {
		t.Error("crypt hash not cleared after upgrade")
	}
	if !a.Verify("oldpass") {
		t.Error("password no longer verifies after upgrade")
	}
}
