// Package testhelpers assembles a complete collabhub stack on an httptest
// server and provides WebSocket and REST helpers for integration tests.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/collabhub/internal/auth"
	"github.com/Tyrowin/collabhub/internal/config"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/logging"
	"github.com/Tyrowin/collabhub/internal/realtime"
	"github.com/Tyrowin/collabhub/internal/server"
	"github.com/Tyrowin/collabhub/internal/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestOrigin is the browser origin the test stack allows.
const TestOrigin = "http://localhost:8080"

// Frame is a decoded outbound event.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Stack is a running server backed by an in-memory database.
type Stack struct {
	Server    *httptest.Server
	Hub       *realtime.Hub
	Verifier  *auth.Verifier
	Projects  *sqlite.ProjectRepository
	Documents *sqlite.DocumentRepository
	Messages  *sqlite.MessageRepository
	Service   *project.Service
	Config    config.Config
}

// NewStack starts the full stack. customize may adjust the configuration
// before anything is constructed. Everything is torn down on test cleanup.
func NewStack(t *testing.T, customize func(cfg *config.Config)) *Stack {
	t.Helper()

	cfg := config.Default()
	cfg.Server.AllowedOrigins = []string{TestOrigin}
	if customize != nil {
		customize(&cfg)
	}
	cfg = cfg.Sanitize()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.Discard()
	s := &Stack{
		Verifier:  auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Projects:  sqlite.NewProjectRepository(db),
		Documents: sqlite.NewDocumentRepository(db),
		Messages:  sqlite.NewMessageRepository(db),
		Config:    cfg,
	}

	s.Hub = realtime.NewHub(realtime.Stores{
		Projects:  s.Projects,
		Messages:  s.Messages,
		Documents: s.Documents,
	}, realtime.Options{
		StoreTimeout:              cfg.Hub.StoreTimeout,
		RequireDocumentMembership: cfg.Hub.RequireDocumentMembership,
	}, logger)
	go s.Hub.Run()

	s.Service = project.NewService(s.Projects, s.Hub, logger)
	srv := server.New(cfg, server.Deps{
		Hub:       s.Hub,
		Projects:  s.Service,
		Messages:  s.Messages,
		Documents: s.Documents,
		Users:     sqlite.NewUserRepository(db),
		Verifier:  s.Verifier,
	}, logger)

	s.Server = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = s.Hub.Shutdown(2 * time.Second)
		s.Server.Close()
	})
	return s
}

// Token issues a signed token for userID.
func (s *Stack) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.Verifier.Issue(auth.Identity{
		UserID: userID,
		Name:   "Name " + userID,
		Email:  userID + "@example.com",
	})
	require.NoError(t, err)
	return token
}

// WebSocketURL is the ws:// address of the /ws endpoint.
func (s *Stack) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http") + "/ws"
}

// Dial opens an authenticated WebSocket connection for userID.
func (s *Stack) Dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", TestOrigin)
	header.Set("Authorization", "Bearer "+s.Token(t, userID))

	conn, err := ConnectWebSocket(s.WebSocketURL(), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Join dials a connection for userID, announces the user and waits until the
// hub has subscribed it to every room in projectIDs.
func (s *Stack) Join(t *testing.T, userID string, projectIDs ...string) *websocket.Conn {
	t.Helper()
	conn := s.Dial(t, userID)
	Send(t, conn, realtime.EventJoinRooms, map[string]string{"userId": userID})
	for _, id := range projectIDs {
		s.WaitForRoom(t, userID, realtime.ProjectRoom(id))
	}
	return conn
}

// WaitForRoom polls until userID has a connection subscribed to room.
func (s *Stack) WaitForRoom(t *testing.T, userID string, room realtime.Room) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Hub.Registry().UserInRoom(userID, room)
	}, 2*time.Second, 5*time.Millisecond, "%s never joined %s", userID, room)
}

// WaitForConnections polls until the hub holds exactly n connections.
func (s *Stack) WaitForConnections(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Hub.Stats().Connections == n
	}, 2*time.Second, 5*time.Millisecond)
}

// Do performs a REST call as userID. An empty userID sends no credentials.
func (s *Stack) Do(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token(t, userID))
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeJSON reads the response body into a value of type T.
func DecodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ConnectWebSocket dials url with the given handshake headers.
func ConnectWebSocket(url string, header http.Header) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Send writes one event frame.
func Send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "payload": payload}))
}

// ReadFrame reads the next frame, failing after timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// ReadEvent skips frames until one named event arrives.
func ReadEvent(t *testing.T, conn *websocket.Conn, event string) Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f := ReadFrame(t, conn, time.Until(deadline))
		if f.Event == event {
			return f
		}
	}
	t.Fatalf("timed out waiting for %q", event)
	return Frame{}
}

// ExpectNoFrame asserts that nothing arrives within timeout.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no frame, got %s", data)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("unexpected read error: %v", err)
}

// Payload decodes a frame payload into a value of type T.
func Payload[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}
