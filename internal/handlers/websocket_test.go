package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"degradation_monitor/internal/models"
	"degradation_monitor/internal/service"
	"degradation_monitor/internal/session"

	"github.com/gorilla/websocket"
)

type wsTestEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// startSessionStream serves the full router with sess behind a mock auth
// that accepts any token, and returns the ws URL of /ws without credentials.
func startSessionStream(t *testing.T, sess *mockSession, auth *mockAuth) *url.URL {
	t.Helper()
	r := newTestRouter(&service.Service{Session: sess, Authorization: auth})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	return u
}

func dialSessionStream(t *testing.T, sess *mockSession) *websocket.Conn {
	t.Helper()
	u := startSessionStream(t, sess, &mockAuth{parseActor: models.Actor{OperatorID: 7, Username: "op"}})
	u.RawQuery = url.Values{tokenQueryParam: {"valid"}}.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) session.State {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env wsTestEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != wsTypeSession || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var st session.State
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return st
}

func TestWebSocket_SessionStream_InitialAndUpdates(t *testing.T) {
	sess := &mockSession{
		state:   session.State{Phase: session.PhaseIdle, Sensitivity: 0.5},
		updates: make(chan session.State, 1),
	}
	conn := dialSessionStream(t, sess)

	if st := readState(t, conn); st.Phase != session.PhaseIdle {
		t.Fatalf("initial phase: got %q", st.Phase)
	}

	sess.updates <- session.State{Phase: session.PhaseLoaded, CategoryID: 5, Status: models.BaselineConfigured}
	st := readState(t, conn)
	if st.Phase != session.PhaseLoaded || st.CategoryID != 5 || st.Status != models.BaselineConfigured {
		t.Fatalf("unexpected update: %+v", st)
	}
}

func TestWebSocket_MachineStopped_Closes(t *testing.T) {
	sess := &mockSession{updates: make(chan session.State, 1)}
	conn := dialSessionStream(t, sess)
	_ = readState(t, conn)

	close(sess.updates)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestWebSocket_ClientClose_Unsubscribes(t *testing.T) {
	sess := &mockSession{updates: make(chan session.State, 1)}
	conn := dialSessionStream(t, sess)
	_ = readState(t, conn)

	_ = conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sess.mu.Lock()
		n := sess.unsubscribe
		sess.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscription not released after client close")
}

func TestWebSocket_RejectsUnauthenticatedHandshake(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		parseErr error
	}{
		{name: "no token"},
		{name: "invalid token", query: "token=forged", parseErr: errors.New("signature is invalid")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &mockSession{}
			u := startSessionStream(t, sess, &mockAuth{parseErr: tc.parseErr})
			u.RawQuery = tc.query

			dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
			conn, resp, err := dialer.Dial(u.String(), nil)
			if err == nil {
				_ = conn.Close()
				t.Fatal("expected the handshake to be refused")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %+v (err=%v)", resp, err)
			}
			if sess.subscribed() {
				t.Fatal("rejected client reached the session")
			}
		})
	}
}

func TestWebSocket_AcceptsBearerHeader(t *testing.T) {
	auth := &mockAuth{parseActor: models.Actor{OperatorID: 7, Username: "op"}}
	u := startSessionStream(t, &mockSession{state: session.State{Phase: session.PhaseIdle}}, auth)

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), authHeader("hdr-token"))
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	if st := readState(t, conn); st.Phase != session.PhaseIdle {
		t.Fatalf("initial phase: got %q", st.Phase)
	}
	if auth.lastParseToken != "hdr-token" {
		t.Fatalf("ParseToken got %q", auth.lastParseToken)
	}
}
