// Package integration exercises the assembled server over real HTTP and
// WebSocket connections.
package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/chat"
	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/realtime"
	"github.com/Tyrowin/collabhub/test/testhelpers"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func createProject(t *testing.T, s *testhelpers.Stack, creator, name string) project.Project {
	t.Helper()
	resp := s.Do(t, http.MethodPost, "/api/projects", creator, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return testhelpers.DecodeJSON[project.Project](t, resp)
}

// addMember runs the invite flow over REST: userID asks, the creator approves.
func addMember(t *testing.T, s *testhelpers.Stack, proj project.Project, userID string) {
	t.Helper()
	resp := s.Do(t, http.MethodPost, "/api/request-join", userID, map[string]string{"inviteCode": proj.InviteCode})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.Do(t, http.MethodPost, "/api/handle-request", proj.CreatorID, map[string]string{
		"projectId": proj.ID,
		"userId":    userID,
		"action":    "approve",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChatAcrossConnections(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")
	addMember(t, s, proj, "bob")

	alice := s.Join(t, "alice", proj.ID)
	bob := s.Join(t, "bob", proj.ID)
	outsider := s.Join(t, "mallory")

	testhelpers.Send(t, bob, realtime.EventSendChat, map[string]string{
		"projectId": proj.ID,
		"text":      "hello team",
	})

	got := testhelpers.Payload[chat.Message](t, testhelpers.ReadEvent(t, alice, realtime.EventChatReceived))
	require.Equal(t, "hello team", got.Text)
	require.Equal(t, "bob", got.AuthorID)
	require.Equal(t, "Name bob", got.AuthorName)

	echo := testhelpers.Payload[chat.Message](t, testhelpers.ReadEvent(t, bob, realtime.EventChatReceived))
	require.Equal(t, got.ID, echo.ID)

	testhelpers.ExpectNoFrame(t, outsider, 150*time.Millisecond)

	resp := s.Do(t, http.MethodGet, "/api/projects/"+proj.ID+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := testhelpers.DecodeJSON[[]chat.Message](t, resp)
	require.Len(t, history, 1)
	require.Equal(t, got.ID, history[0].ID)
}

func TestChatFromNonMemberIsDropped(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")

	alice := s.Join(t, "alice", proj.ID)
	mallory := s.Join(t, "mallory")

	testhelpers.Send(t, mallory, realtime.EventSendChat, map[string]string{
		"projectId": proj.ID,
		"text":      "let me in",
	})
	// Frames from one connection are handled in order, so once the call join
	// lands the chat attempt has been processed too.
	testhelpers.Send(t, mallory, realtime.EventJoinCall, map[string]string{"roomId": "lobby", "userId": "mallory"})
	s.WaitForRoom(t, "mallory", realtime.CallRoom("lobby"))

	testhelpers.ExpectNoFrame(t, alice, 150*time.Millisecond)
	messages, err := s.Messages.ListByProject(t.Context(), proj.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestMalformedFramesKeepConnectionOpen(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")
	alice := s.Join(t, "alice", proj.ID)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	testhelpers.Send(t, alice, "no-such-event", map[string]string{})
	testhelpers.Send(t, alice, realtime.EventEditDocument, map[string]string{"documentId": "d1"})

	testhelpers.Send(t, alice, realtime.EventSendChat, map[string]string{
		"projectId": proj.ID,
		"text":      "still here",
	})
	got := testhelpers.Payload[chat.Message](t, testhelpers.ReadEvent(t, alice, realtime.EventChatReceived))
	require.Equal(t, "still here", got.Text)
}

func TestDocumentEditsReachOtherEditors(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")
	addMember(t, s, proj, "bob")

	resp := s.Do(t, http.MethodPost, "/api/projects/"+proj.ID+"/documents", "alice", map[string]string{"title": "Plan"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc := testhelpers.DecodeJSON[document.Document](t, resp)

	alice := s.Join(t, "alice", proj.ID)
	bob := s.Join(t, "bob", proj.ID)
	testhelpers.Send(t, alice, realtime.EventJoinDocument, map[string]string{"documentId": doc.ID})
	testhelpers.Send(t, bob, realtime.EventJoinDocument, map[string]string{"documentId": doc.ID})
	s.WaitForRoom(t, "alice", realtime.DocumentRoom(doc.ID))
	s.WaitForRoom(t, "bob", realtime.DocumentRoom(doc.ID))

	testhelpers.Send(t, alice, realtime.EventEditDocument, map[string]string{
		"documentId": doc.ID,
		"content":    "# Plan\n- ship it",
	})

	changed := testhelpers.Payload[realtime.DocumentChangedPayload](t, testhelpers.ReadEvent(t, bob, realtime.EventDocumentChanged))
	require.Equal(t, doc.ID, changed.DocumentID)
	require.Equal(t, "# Plan\n- ship it", changed.Content)

	resp = s.Do(t, http.MethodGet, "/api/documents/"+doc.ID, "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := testhelpers.DecodeJSON[document.Document](t, resp)
	require.Equal(t, "# Plan\n- ship it", stored.Content)

	// The editor does not get its own change back.
	testhelpers.ExpectNoFrame(t, alice, 150*time.Millisecond)
}

func TestCallPresenceAndSignaling(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	alice := s.Join(t, "alice")
	bob := s.Join(t, "bob")

	testhelpers.Send(t, alice, realtime.EventJoinCall, map[string]string{"roomId": "standup", "userId": "alice"})
	s.WaitForRoom(t, "alice", realtime.CallRoom("standup"))
	testhelpers.Send(t, bob, realtime.EventJoinCall, map[string]string{"roomId": "standup", "userId": "bob"})

	joined := testhelpers.Payload[realtime.PresencePayload](t, testhelpers.ReadEvent(t, alice, realtime.EventUserConnected))
	require.Equal(t, realtime.PresencePayload{RoomID: "standup", UserID: "bob"}, joined)

	resp := s.Do(t, http.MethodGet, "/api/calls/standup/participants", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testhelpers.DecodeJSON[struct {
		Participants []string `json:"participants"`
	}](t, resp)
	require.Equal(t, []string{"alice", "bob"}, body.Participants)

	testhelpers.Send(t, alice, realtime.EventSignalRelay, map[string]any{
		"targetUserId": "bob",
		"callerId":     "alice",
		"signal":       map[string]string{"type": "offer", "sdp": "v=0"},
	})
	signal := testhelpers.Payload[realtime.PeerSignalPayload](t, testhelpers.ReadEvent(t, bob, realtime.EventPeerSignal))
	require.Equal(t, "alice", signal.CallerID)
	require.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(signal.Signal))

	require.NoError(t, bob.Close())
	left := testhelpers.Payload[realtime.PresencePayload](t, testhelpers.ReadEvent(t, alice, realtime.EventUserDisconnected))
	require.Equal(t, realtime.PresencePayload{RoomID: "standup", UserID: "bob"}, left)
}

func TestKickRevokesLiveAccess(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")
	addMember(t, s, proj, "bob")

	alice := s.Join(t, "alice", proj.ID)
	bob := s.Join(t, "bob", proj.ID)

	resp := s.Do(t, http.MethodPost, "/api/projects/"+proj.ID+"/kick", "alice", map[string]string{"userId": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	kicked := testhelpers.Payload[realtime.ProjectPayload](t, testhelpers.ReadEvent(t, bob, realtime.EventYouWereKicked))
	require.Equal(t, proj.ID, kicked.ProjectID)

	members := testhelpers.Payload[realtime.MemberUpdatedPayload](t, testhelpers.ReadEvent(t, alice, realtime.EventMemberUpdated))
	require.Len(t, members.Members, 1)
	require.Equal(t, "alice", members.Members[0].ID)

	require.False(t, s.Hub.Registry().UserInRoom("bob", realtime.ProjectRoom(proj.ID)))

	testhelpers.Send(t, alice, realtime.EventSendChat, map[string]string{"projectId": proj.ID, "text": "bye bob"})
	testhelpers.ReadEvent(t, alice, realtime.EventChatReceived)
	testhelpers.ExpectNoFrame(t, bob, 150*time.Millisecond)
}

func TestProjectDeletionNotifiesMembers(t *testing.T) {
	s := testhelpers.NewStack(t, nil)
	proj := createProject(t, s, "alice", "Apollo")
	addMember(t, s, proj, "bob")
	bob := s.Join(t, "bob", proj.ID)

	resp := s.Do(t, http.MethodDelete, "/api/projects/"+proj.ID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f := testhelpers.ReadEvent(t, bob, realtime.EventProjectDeleted)
	var payload realtime.ProjectPayload
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	require.Equal(t, proj.ID, payload.ProjectID)
	require.Empty(t, s.Hub.Registry().Members(realtime.ProjectRoom(proj.ID)))
}
