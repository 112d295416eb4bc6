package server

import (
	"sort"
	"sync"
)

// Registry tracks live sessions by remote address and hands out their
// outbound queues for cross-session delivery (who listings, future
// broadcast/paging). It is the only state shared by all session
// goroutines; every method holds the lock briefly and never across I/O.
//
// It also owns login exclusivity: an account name binds to at most one
// live session at a time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Outbound
	accounts map[string]string // account name -> session addr
	byAddr   map[string]string // session addr -> account name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Outbound),
		accounts: make(map[string]string),
		byAddr:   make(map[string]string),
	}
}

// Add registers a session's outbound queue under its remote address.
// Addresses are unique per live connection, so an existing entry is
// simply replaced.
func (r *Registry) Add(addr string, out *Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[addr] = out
}

// Remove drops a session and releases any account binding it holds.
// Removing an address that is already gone is a no-op, which tolerates
// disconnect races.
func (r *Registry) Remove(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, addr)
	if name, ok := r.byAddr[addr]; ok {
		delete(r.byAddr, addr)
		delete(r.accounts, name)
	}
}

// Lookup returns the outbound queue for a live session.
func (r *Registry) Lookup(addr string) (*Outbound, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.sessions[addr]
	return out, ok
}

// BindAccount reserves an account name for the given session. It fails
// when the name is already bound to another live session, enforcing one
// active login per account.
func (r *Registry) BindAccount(addr, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, taken := r.accounts[name]; taken && holder != addr {
		return false
	}
	r.accounts[name] = addr
	r.byAddr[addr] = name
	return true
}

// LoggedIn returns the bound account names in sorted order.
func (r *Registry) LoggedIn() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
