package server

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metric descriptors for the server. A nil
// *Metrics is valid and records nothing, so the engine runs identically
// with observability off (tests, minimal deployments).
type Metrics struct {
	startTime time.Time

	sessionsActive   prometheus.Gauge
	playersConnected prometheus.Gauge
	connectionsTotal prometheus.Counter
	commandsTotal    prometheus.Counter
	loginsTotal      *prometheus.CounterVec
	bytesSentTotal   prometheus.Counter
	bytesRecvTotal   prometheus.Counter
	uptimeSeconds    prometheus.Gauge
	goroutines       prometheus.Gauge
}

// NewMetrics creates server metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer, startTime time.Time) *Metrics {
	m := &Metrics{
		startTime: startTime,
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermud_sessions_active",
			Help: "Number of live client connections.",
		}),
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermud_players_connected",
			Help: "Number of sessions in the Playing state.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embermud_connections_total",
			Help: "Total connections accepted since server start.",
		}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embermud_commands_processed_total",
			Help: "Total input lines processed since server start.",
		}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "embermud_login_attempts_total",
			Help: "Login and registration attempts by result.",
		}, []string{"result"}),
		bytesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embermud_bytes_sent_total",
			Help: "Total bytes sent to clients.",
		}),
		bytesRecvTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embermud_bytes_received_total",
			Help: "Total bytes received from clients.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermud_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermud_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	reg.MustRegister(
		m.sessionsActive,
		m.playersConnected,
		m.connectionsTotal,
		m.commandsTotal,
		m.loginsTotal,
		m.bytesSentTotal,
		m.bytesRecvTotal,
		m.uptimeSeconds,
		m.goroutines,
	)
	return m
}

// Refresh updates the sampled gauges. Called by the metrics handler
// before each scrape.
func (m *Metrics) Refresh() {
	if m == nil {
		return
	}
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// SessionOpened records an accepted connection.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.sessionsActive.Inc()
}

// SessionClosed records a torn-down connection.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// PlayerLoggedIn records a transition into Playing.
func (m *Metrics) PlayerLoggedIn() {
	if m == nil {
		return
	}
	m.playersConnected.Inc()
}

// PlayerLoggedOut records a Playing session ending.
func (m *Metrics) PlayerLoggedOut() {
	if m == nil {
		return
	}
	m.playersConnected.Dec()
}

// Command records one processed input line.
func (m *Metrics) Command() {
	if m == nil {
		return
	}
	m.commandsTotal.Inc()
}

// LoginAttempt records a login or registration outcome.
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

// BytesSent adds to the outbound byte counter.
func (m *Metrics) BytesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesSentTotal.Add(float64(n))
}

// BytesReceived adds to the inbound byte counter.
func (m *Metrics) BytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRecvTotal.Add(float64(n))
}
