package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/ember-mud/embermud/pkg/account"
)

// Server owns the TCP listener, the session registry, and the shared
// collaborators every session needs. All of it is constructed here and
// passed to sessions explicitly; there is no process-global state.
type Server struct {
	Config   Config
	Accounts account.Store
	Registry *Registry
	Texts    *Texts
	Metrics  *Metrics

	listener     net.Listener
	web          *WebServer
	startTime    time.Time
	commandCount uint64

	mu     sync.Mutex
	nextID int
}

// NewServer wires a server around a credential store.
func NewServer(cfg Config, accounts account.Store) *Server {
	if cfg.MaxLineLen <= 0 {
		cfg.MaxLineLen = DefaultMaxLineLen
	}
	return &Server{
		Config:    cfg,
		Accounts:  accounts,
		Registry:  NewRegistry(),
		Texts:     NewTexts(cfg.TextDir),
		startTime: time.Now(),
	}
}

// Start listens on the configured port and serves until Stop. When the
// web side is enabled it also starts the HTTP listener (metrics, token
// login, WebSocket transport).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.Port))
	if err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	s.listener = ln

	if s.Config.WebEnabled {
		s.web = NewWebServer(s)
		go func() {
			if err := s.web.Start(); err != nil {
				log.Printf("web server: %v", err)
			}
		}()
	}

	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed. Callers must
// have stored ln as the server's listener (Start does) so Addr and
// Stop see it. A transient accept error is logged and retried after a
// short delay; the listener itself never dies to a single bad accept.
func (s *Server) Serve(ln net.Listener) error {
	log.Printf("%s listening on %s", s.Config.MudName, ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Accept error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		go s.handleConn(conn)
	}
}

// Addr returns the listener address, once serving.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listeners. In-flight sessions run until their clients
// disconnect.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.web != nil {
		s.web.Stop()
	}
}

// handleConn runs one accepted connection as a session.
func (s *Server) handleConn(conn net.Conn) {
	id := s.sessionID()
	s.Metrics.SessionOpened()
	sess := NewSession(s, id, conn)
	log.Printf("[%d] New connection from %s", id, sess.Addr)
	sess.Run()
}

func (s *Server) sessionID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}
