package server

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/ember-mud/embermud/pkg/account"
	"github.com/ember-mud/embermud/pkg/boltstore"
)

// newDetachedSession builds a session on a pipe without running it, for
// poking at the state machine directly.
func newDetachedSession(t *testing.T) *Session {
	t.Helper()
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("boltstore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer(DefaultConfig(), store)
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return NewSession(srv, 1, server)
}

func TestAccountReadableOnlyWhilePlaying(t *testing.T) {
	s := newDetachedSession(t)

	if s.State() != StateConnected {
		t.Fatalf("initial state = %v, want Connected", s.State())
	}
	if _, ok := s.Account(); ok {
		t.Fatal("account readable before login")
	}

	acct := &account.Account{Name: "alice"}
	if !s.apply(LoginAs(acct, "welcome")) {
		t.Fatal("login action terminated the session")
	}
	if s.State() != StatePlaying {
		t.Fatalf("state after login = %v, want Playing", s.State())
	}
	got, ok := s.Account()
	if !ok || got.Name != "alice" {
		t.Fatalf("Account() = %v, %v", got, ok)
	}
}

func TestNoopLeavesStateAlone(t *testing.T) {
	s := newDetachedSession(t)
	if !s.apply(Noop("just a message")) {
		t.Fatal("noop terminated the session")
	}
	if s.State() != StateConnected {
		t.Fatalf("state = %v, want Connected", s.State())
	}
}

func TestDisconnectActionTerminates(t *testing.T) {
	s := newDetachedSession(t)
	if s.apply(Disconnect("bye")) {
		t.Fatal("disconnect action did not terminate the session")
	}
}

func TestLoginRejectedWhenAccountBound(t *testing.T) {
	s := newDetachedSession(t)
	// Another live session already holds the name.
	s.srv.Registry.Add("other:1", NewOutbound())
	s.srv.Registry.BindAccount("other:1", "alice")

	acct := &account.Account{Name: "alice"}
	if !s.apply(LoginAs(acct, "welcome")) {
		t.Fatal("rejected login must keep the session alive")
	}
	if s.State() != StateConnected {
		t.Fatalf("state = %v, want Connected after rejected login", s.State())
	}
	if _, ok := s.Account(); ok {
		t.Fatal("account readable after rejected login")
	}
}

func TestSessionStateStrings(t *testing.T) {
	want := map[State]string{
		StateConnected: "connected",
		StateIdle:      "idle",
		StatePlaying:   "playing",
		StatePrison:    "prison",
	}
	for st, name := range want {
		if st.String() != name {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), name)
		}
	}
}
