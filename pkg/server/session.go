package server

import (
	"log"
	"net"
	"strings"
	"time"
	"unicode"

	"github.com/ember-mud/embermud/pkg/account"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	// StateConnected is the initial state: accepted, not authenticated.
	StateConnected State = iota
	// StateIdle is authenticated but out of the world. Reachable in
	// principle; no transitions are wired yet.
	StateIdle
	// StatePlaying is authenticated and active.
	StatePlaying
	// StatePrison is a restricted state reserved for future moderation
	// tooling. Never entered today.
	StatePrison
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePrison:
		return "prison"
	}
	return "unknown"
}

// Session is the server-side state for one accepted connection. A single
// goroutine owns it end to end: read a line, dispatch it for the current
// state, apply the returned action, repeat.
type Session struct {
	ID   int
	Addr string

	srv    *Server
	conn   net.Conn
	reader *LineReader
	out    *Outbound

	state State
	acct  *account.Account // non-nil only in StatePlaying

	connTime   time.Time
	lastCmd    time.Time
	cmdCount   int
	writerDone chan struct{}
}

// NewSession wraps an accepted connection. The session is registered
// with the registry here; Run's teardown removes it on every exit path.
func NewSession(srv *Server, id int, conn net.Conn) *Session {
	now := time.Now()
	s := &Session{
		ID:       id,
		Addr:     conn.RemoteAddr().String(),
		srv:      srv,
		conn:     conn,
		reader:   NewLineReader(conn, srv.Config.MaxLineLen),
		out:      NewOutbound(),
		state:    StateConnected,
		connTime: now,
		lastCmd:  now,
	}
	srv.Registry.Add(s.Addr, s.out)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Account returns the authenticated account. ok is false outside
// StatePlaying; the account is not readable from any other state.
func (s *Session) Account() (*account.Account, bool) {
	if s.state != StatePlaying {
		return nil, false
	}
	return s.acct, true
}

// preLogin moves a freshly created session straight into Playing, used
// by the web transport when a client arrives with a valid token. Must be
// called before Run.
func (s *Session) preLogin(acct *account.Account) {
	if !s.srv.Registry.BindAccount(s.Addr, acct.Name) {
		s.Send("That account is already logged in elsewhere.")
		return
	}
	s.state = StatePlaying
	s.acct = acct
	s.srv.Metrics.PlayerLoggedIn()
	s.Send("Successfully logged in as " + acct.Name)
}

// Send queues one line for delivery to this session's client.
func (s *Session) Send(msg string) {
	s.out.Queue(msg)
}

// Run drives the session until the client disconnects, quits, or an I/O
// error occurs. Cleanup is deferred so the registry entry is released on
// every exit path.
func (s *Session) Run() {
	defer func() {
		s.srv.Registry.Remove(s.Addr)
		s.out.Close()
		if s.writerDone != nil {
			// Give the writer a moment to flush farewell text
			// before the socket goes away.
			select {
			case <-s.writerDone:
			case <-time.After(2 * time.Second):
			}
		}
		s.conn.Close()
		if s.state == StatePlaying {
			s.srv.Metrics.PlayerLoggedOut()
		}
		s.srv.Metrics.SessionClosed()
		log.Printf("[%d] Connection closed from %s", s.ID, s.Addr)
	}()

	// The welcome banner goes out synchronously, before the writer
	// starts, so every client sees it no matter how fast they hang up.
	if err := s.writeDirect(s.srv.Texts.Welcome() + "\r\n"); err != nil {
		log.Printf("[%d] banner write: %v", s.ID, err)
		return
	}

	writer := NewLineWriter(s.conn, s.out)
	writer.onWrite = s.srv.Metrics.BytesSent
	s.writerDone = make(chan struct{})
	go func() {
		defer close(s.writerDone)
		if err := writer.Run(); err != nil {
			// Delivery is dead; close the socket so the read
			// side unblocks and tears the session down.
			s.conn.Close()
		}
	}()

	for {
		line, err := s.reader.ReadLine()
		if err == ErrLineTooLong {
			log.Printf("[%d] Over-length line from %s, disconnecting", s.ID, s.Addr)
			s.writeDirect("Line too long. Goodbye.\r\n")
			return
		}
		if err != nil {
			// EOF means the peer closed; anything else is an I/O
			// failure. Both end only this session.
			return
		}
		s.srv.Metrics.BytesReceived(len(line) + 2)
		s.lastCmd = time.Now()
		s.cmdCount++
		s.srv.countCommand()
		s.srv.Metrics.Command()

		line = stripControl(line)
		if !s.apply(s.dispatch(line)) {
			return
		}
	}
}

// dispatch routes a line through the command table for the current
// state.
func (s *Session) dispatch(line string) Action {
	switch s.state {
	case StateConnected:
		return connTable.Dispatch(s, line)
	case StatePlaying:
		return playTable.Dispatch(s, line)
	default:
		// Idle and Prison have no command sets wired yet.
		return Noop("Nothing to do here yet.")
	}
}

// apply performs the state transition an action calls for and queues its
// message. It returns false when the session should terminate.
func (s *Session) apply(act Action) bool {
	switch act.Kind {
	case ActDisconnect:
		if act.Message != "" {
			s.Send(act.Message)
		}
		// Close flushes the remaining queue before the writer exits.
		s.out.Close()
		return false

	case ActLogin:
		if !s.srv.Registry.BindAccount(s.Addr, act.Account.Name) {
			s.Send("That account is already logged in elsewhere.")
			return true
		}
		s.state = StatePlaying
		s.acct = act.Account
		s.srv.Metrics.PlayerLoggedIn()
		s.Send(act.Message)
		if motd := s.srv.Texts.Motd(); motd != "" {
			s.Send(motd)
		}
		return true

	default:
		if act.Message != "" {
			s.Send(act.Message)
		}
		return true
	}
}

// writeDirect bypasses the outbound queue. Used for the banner (before
// the writer exists) and terminal notices (after the queue is closed).
func (s *Session) writeDirect(msg string) error {
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, err := s.conn.Write([]byte(msg))
	s.srv.Metrics.BytesSent(n)
	return err
}

// stripControl drops control characters from raw input before it is
// interpreted, so terminal escape sequences cannot be smuggled into
// command text or echoed to other players.
func stripControl(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, line)
}
