package server

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ember-mud/embermud/pkg/account"
)

// connTable is the command set for the Connected (pre-login) state.
// Built once at package init; read-only afterwards.
var connTable = NewTable(map[string]Handler{
	"help":     cmdConnHelp,
	"quit":     cmdConnQuit,
	"register": cmdRegister,
	"login":    cmdLogin,
	"who":      cmdWho,
	"stats":    cmdStats,
}, connFallback)

// connFallback runs when nothing in the table matches: the whole line is
// re-read as login arguments, so typing a bare username logs in.
func connFallback(s *Session, fields []string) Action {
	return cmdLogin(s, fields)
}

func cmdConnHelp(s *Session, _ []string) Action {
	return Noop(s.srv.Texts.Welcome())
}

func cmdConnQuit(s *Session, _ []string) Action {
	return Disconnect(s.srv.Texts.Quit())
}

// cmdRegister creates a new account and logs the session straight in.
func cmdRegister(s *Session, args []string) Action {
	if len(args) < 2 {
		return Noop("Usage: register <name> <password>")
	}
	name, password := args[0], args[1]

	acct, err := s.srv.Accounts.Create(name, password)
	switch {
	case errors.Is(err, account.ErrExists):
		s.srv.Metrics.LoginAttempt("register_exists")
		return Noop(fmt.Sprintf("%q already exists. Please choose a different name.", name))
	case err != nil:
		log.Printf("[%d] account create %q: %v", s.ID, name, err)
		s.srv.Metrics.LoginAttempt("storage_error")
		return Noop("Account storage is unavailable right now. Please try again later.")
	}

	log.Printf("[%d] Registered new account %q from %s", s.ID, name, s.Addr)
	s.srv.Metrics.LoginAttempt("registered")
	return LoginAs(acct, fmt.Sprintf("Registered new account: %s", name))
}

// cmdLogin authenticates against the credential store.
func cmdLogin(s *Session, args []string) Action {
	if len(args) < 2 {
		return Noop("Usage: login <name> <password>")
	}
	name, password := args[0], args[1]

	acct, err := s.srv.Accounts.Authenticate(name, password)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		s.srv.Metrics.LoginAttempt("invalid")
		return Noop("Invalid login. Try again.")
	case err != nil:
		log.Printf("[%d] authenticate %q: %v", s.ID, name, err)
		s.srv.Metrics.LoginAttempt("storage_error")
		return Noop("Account storage is unavailable right now. Please try again later.")
	}

	log.Printf("[%d] Successful login for %q from %s", s.ID, name, s.Addr)
	s.srv.Metrics.LoginAttempt("ok")
	return LoginAs(acct, fmt.Sprintf("Successfully logged in as %s", name))
}

// cmdWho lists the accounts currently logged in.
func cmdWho(s *Session, _ []string) Action {
	names := s.srv.Registry.LoggedIn()
	if len(names) == 0 {
		return Noop("Nobody is logged in right now.")
	}
	return Noop(fmt.Sprintf("Logged in (%d): %s", len(names), strings.Join(names, ", ")))
}

// cmdStats reports server uptime and connection counts.
func cmdStats(s *Session, _ []string) Action {
	st := s.srv.Stats()
	return Noop(fmt.Sprintf("%s up %s: %d connection(s), %d logged in, %d command(s) served",
		s.srv.Config.MudName, st.Uptime.Round(timeRound), st.Connections, st.LoggedIn, st.Commands))
}
