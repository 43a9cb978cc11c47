package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/logging"
	"github.com/Tyrowin/collabhub/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type received struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// fakeConn records delivered frames. A positive capacity makes Send fail once
// that many frames are buffered.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
	closed   bool
}

func (c *fakeConn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (c.capacity > 0 && len(c.frames) >= c.capacity) {
		return false
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) events(t *testing.T) []received {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]received, 0, len(c.frames))
	for _, frame := range c.frames {
		var r received
		require.NoError(t, json.Unmarshal(frame, &r))
		out = append(out, r)
	}
	return out
}

func (c *fakeConn) named(t *testing.T, event string) []received {
	t.Helper()
	var out []received
	for _, r := range c.events(t) {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// authConn is a connection whose user was verified at the handshake.
type authConn struct {
	fakeConn
	userID string
	name   string
}

func (c *authConn) AuthenticatedUser() (string, string) {
	return c.userID, c.name
}

func decodePayload[T any](t *testing.T, r received) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Payload, &v))
	return v
}

type testEnv struct {
	hub       *Hub
	projects  *sqlite.ProjectRepository
	messages  *sqlite.MessageRepository
	documents *sqlite.DocumentRepository
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		projects:  sqlite.NewProjectRepository(db),
		messages:  sqlite.NewMessageRepository(db),
		documents: sqlite.NewDocumentRepository(db),
	}
	env.hub = startHub(t, Stores{
		Projects:  env.projects,
		Messages:  env.messages,
		Documents: env.documents,
	}, opts)
	return env
}

func startHub(t *testing.T, stores Stores, opts Options) *Hub {
	t.Helper()
	h := NewHub(stores, opts, logging.Discard())
	go h.Run()
	t.Cleanup(func() { _ = h.Shutdown(time.Second) })
	return h
}

func (e *testEnv) seedProject(t *testing.T, id, creator string, members ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.projects.Create(ctx, &project.Project{
		ID:         id,
		Name:       "Project " + id,
		CreatorID:  creator,
		InviteCode: "invite-" + id,
		CreatedAt:  time.Now().UTC(),
	}))
	for _, m := range members {
		_, err := e.projects.AddMember(ctx, id, m)
		require.NoError(t, err)
	}
}

func (e *testEnv) seedDocument(t *testing.T, id, projectID string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.documents.Create(context.Background(), &document.Document{
		ID:        id,
		ProjectID: projectID,
		Title:     "Doc " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

// connect attaches a fake connection and identifies it as userID.
func (e *testEnv) connect(t *testing.T, userID string) (ConnID, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	id := attach(t, e.hub, conn)
	if userID != "" {
		dispatch(t, e.hub, id, &JoinRooms{UserID: userID})
	}
	return id, conn
}

func attach(t *testing.T, h *Hub, conn Conn) ConnID {
	t.Helper()
	id, err := h.Attach(context.Background(), conn)
	require.NoError(t, err)
	return id
}

// dispatch delivers the event and waits for the hub to finish processing it.
func dispatch(t *testing.T, h *Hub, id ConnID, event Inbound) {
	t.Helper()
	h.Dispatch(id, event)
	require.NoError(t, h.Flush(context.Background()))
}

func disconnect(t *testing.T, h *Hub, id ConnID) {
	t.Helper()
	h.Unregister(id)
	require.NoError(t, h.Flush(context.Background()))
}
