package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ember-mud/embermud/pkg/account"
)

// WebServer is the HTTP side of the game server: Prometheus metrics,
// token login, a status endpoint, and a WebSocket transport that feeds
// browser clients into the same session engine as TCP.
type WebServer struct {
	srv      *Server
	httpSrv  *http.Server
	auth     *AuthService
	upgrader websocket.Upgrader
}

// NewWebServer builds the web side and attaches metrics to the game
// server.
func NewWebServer(s *Server) *WebServer {
	reg := prometheus.NewRegistry()
	s.Metrics = NewMetrics(reg, s.startTime)

	ws := &WebServer{
		srv:  s,
		auth: NewAuthService(s.Accounts, s.Config.JWTSecret, s.Config.JWTExpiry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The game client may be served from anywhere; the
			// token, not the origin, is the credential.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", ws.metricsHandler(reg))
	mux.HandleFunc("/api/login", ws.handleLogin)
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/ws", ws.handleWS)

	ws.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Config.WebPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return ws
}

// Start serves HTTP until Stop.
func (ws *WebServer) Start() error {
	log.Printf("Web server listening on %s", ws.httpSrv.Addr)
	err := ws.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down, waiting briefly for in-flight
// requests.
func (ws *WebServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws.httpSrv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (ws *WebServer) Handler() http.Handler { return ws.httpSrv.Handler }

func (ws *WebServer) metricsHandler(reg *prometheus.Registry) http.Handler {
	inner := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.srv.Metrics.Refresh()
		inner.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin exchanges credentials for a JWT.
func (ws *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := ws.auth.Login(req.Name, req.Password)
	if err != nil {
		ws.srv.Metrics.LoginAttempt("web_invalid")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	ws.srv.Metrics.LoginAttempt("web_ok")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token})
}

// handleStatus reports server stats as JSON.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := ws.srv.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":           ws.srv.Config.MudName,
		"uptime_seconds": int(st.Uptime.Seconds()),
		"connections":    st.Connections,
		"logged_in":      st.LoggedIn,
		"commands":       st.Commands,
	})
}

// handleWS upgrades to WebSocket and hands the connection to the
// session engine. A valid ?token= pre-authenticates the session into
// Playing; without one, the client lands on the normal login screen.
func (ws *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	var claims *Claims
	if tok := r.URL.Query().Get("token"); tok != "" {
		c, err := ws.auth.ValidateToken(tok)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		claims = c
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	id := ws.srv.sessionID()
	ws.srv.Metrics.SessionOpened()
	sess := NewSession(ws.srv, id, newWSConn(conn))
	log.Printf("[%d] New websocket connection from %s", id, sess.Addr)
	if claims != nil {
		sess.preLogin(&account.Account{Name: claims.AccountName, Valid: true})
	}
	go sess.Run()
}

// wsConn adapts a websocket connection to net.Conn so the line
// transport can treat both transports identically. Each inbound text
// message is surfaced as a CRLF-terminated line.
type wsConn struct {
	ws  *websocket.Conn
	buf []byte
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{ws: c}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, net.ErrClosed
			}
			return 0, err
		}
		c.buf = append(data, '\r', '\n')
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error                       { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr                { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr               { return c.ws.RemoteAddr() }
func (c *wsConn) SetDeadline(t time.Time) error      { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
