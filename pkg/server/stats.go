package server

import (
	"sync/atomic"
	"time"
)

// ServerStats is a point-in-time summary of server activity, served to
// the stats command and the web status endpoint.
type ServerStats struct {
	Uptime      time.Duration `json:"uptime_seconds"`
	Connections int           `json:"connections"`
	LoggedIn    int           `json:"logged_in"`
	Commands    uint64        `json:"commands"`
}

// Stats snapshots current activity.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Uptime:      time.Since(s.startTime),
		Connections: s.Registry.Count(),
		LoggedIn:    len(s.Registry.LoggedIn()),
		Commands:    atomic.LoadUint64(&s.commandCount),
	}
}

// countCommand bumps the lifetime command counter.
func (s *Server) countCommand() {
	atomic.AddUint64(&s.commandCount, 1)
}
