package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ember-mud/embermud/pkg/account"
)

// ActionKind discriminates the outcomes a command handler can produce.
type ActionKind int

const (
	// ActNoop queues the action's message and leaves state alone.
	ActNoop ActionKind = iota
	// ActDisconnect tears the session down after the message drains.
	ActDisconnect
	// ActLogin moves the session to Playing as the carried account.
	ActLogin
)

// Action is the result of dispatching one input line.
type Action struct {
	Kind    ActionKind
	Message string
	Account *account.Account // set only for ActLogin
}

// Noop builds an action that only reports text back to the client.
func Noop(msg string) Action { return Action{Kind: ActNoop, Message: msg} }

// Disconnect builds the terminal action.
func Disconnect(msg string) Action { return Action{Kind: ActDisconnect, Message: msg} }

// LoginAs builds the transition into Playing.
func LoginAs(acct *account.Account, msg string) Action {
	return Action{Kind: ActLogin, Message: msg, Account: acct}
}

// Handler implements one command. args are the whitespace-split tokens
// after the command name.
type Handler func(s *Session, args []string) Action

// Table maps command names to handlers for one session state. Tables are
// built once at startup and never mutated, so dispatch needs no locking.
//
// fallback, when set, receives the full token list (command candidate
// included) whenever no table key has the candidate as a prefix. The
// Connected table uses it to treat a bare username as a login attempt.
type Table struct {
	cmds     map[string]Handler
	names    []string // sorted keys, for deterministic ambiguity output
	fallback Handler
}

// NewTable builds an immutable dispatch table.
func NewTable(cmds map[string]Handler, fallback Handler) *Table {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Table{cmds: cmds, names: names, fallback: fallback}
}

// Dispatch resolves input against the table by shortest-unique-prefix
// match and invokes the winning handler. Matching is case-exact.
func (t *Table) Dispatch(s *Session, input string) Action {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Noop("")
	}
	candidate, args := fields[0], fields[1:]

	// Exact match wins outright, so short commands like "n" stay usable
	// even when they prefix longer names.
	if h, ok := t.cmds[candidate]; ok {
		return h(s, args)
	}

	var matches []string
	for _, name := range t.names {
		if strings.HasPrefix(name, candidate) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		if t.fallback != nil {
			return t.fallback(s, fields)
		}
		return Noop(fmt.Sprintf("Unknown command: %q", candidate))
	case 1:
		return t.cmds[matches[0]](s, args)
	default:
		return Noop(fmt.Sprintf("Ambiguous command: %q matches %s",
			candidate, strings.Join(matches, ", ")))
	}
}
