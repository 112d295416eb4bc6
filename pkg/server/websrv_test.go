package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func newTestWeb(t *testing.T) (*Server, *WebServer, *httptest.Server) {
	t.Helper()
	srv := newTestServer(t)
	ws := NewWebServer(srv)
	ts := httptest.NewServer(ws.Handler())
	t.Cleanup(ts.Close)
	return srv, ws, ts
}

func webLogin(t *testing.T, ts *httptest.Server, name, password string) (string, int) {
	t.Helper()
	body, _ := json.Marshal(loginRequest{Name: name, Password: password})
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return lr.Token, resp.StatusCode
}

func TestAPILogin(t *testing.T) {
	srv, ws, ts := newTestWeb(t)

	if _, err := srv.Accounts.Create("alice", "secret"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	token, code := webLogin(t, ts, "alice", "secret")
	if code != http.StatusOK || token == "" {
		t.Fatalf("login: code=%d token=%q", code, token)
	}
	claims, err := ws.auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.AccountName != "alice" {
		t.Errorf("claims name = %q, want alice", claims.AccountName)
	}

	if _, code := webLogin(t, ts, "alice", "wrong"); code != http.StatusUnauthorized {
		t.Errorf("wrong password: code = %d, want 401", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, ts := newTestWeb(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "embermud_uptime_seconds") {
		t.Error("metrics output missing embermud_uptime_seconds")
	}
}

func TestWebSocketSession(t *testing.T) {
	srv, _, ts := newTestWeb(t)
	if _, err := srv.Accounts.Create("bob", "secret"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _ := webLogin(t, ts, "bob", "secret")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	readMsg := func() string {
		t.Helper()
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ws read: %v", err)
		}
		return string(data)
	}

	if msg := readMsg(); !strings.Contains(msg, "Welcome to EmberMUD") {
		t.Fatalf("first message = %q, want banner", msg)
	}
	if msg := readMsg(); !strings.Contains(msg, "Successfully logged in as bob") {
		t.Fatalf("second message = %q, want pre-auth login line", msg)
	}

	// The token pre-authenticated us into Playing: game commands work.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("who")); err != nil {
		t.Fatalf("ws write: %v", err)
	}
	if msg := readMsg(); !strings.Contains(msg, "bob") {
		t.Fatalf("who reply = %q, want it to list bob", msg)
	}
}

func TestWebSocketBadToken(t *testing.T) {
	_, _, ts := newTestWeb(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial with bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %v, want 401", resp)
	}
}
