package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tyrowin/collabhub/internal/auth"
	"github.com/Tyrowin/collabhub/internal/config"
	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/logging"
	"github.com/Tyrowin/collabhub/internal/realtime"
	"github.com/Tyrowin/collabhub/internal/repository"
	"github.com/Tyrowin/collabhub/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	handler  http.Handler
	server   *Server
	verifier *auth.Verifier
	users    *sqlite.UserRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	projects := sqlite.NewProjectRepository(db)
	messages := sqlite.NewMessageRepository(db)
	documents := sqlite.NewDocumentRepository(db)

	hub := realtime.NewHub(realtime.Stores{
		Projects:  projects,
		Messages:  messages,
		Documents: documents,
	}, realtime.Options{}, logging.Discard())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	f := &apiFixture{
		verifier: auth.NewVerifier("test-secret", time.Hour),
		users:    sqlite.NewUserRepository(db),
	}
	f.server = New(config.Default(), Deps{
		Hub:       hub,
		Projects:  project.NewService(projects, hub, logging.Discard()),
		Messages:  messages,
		Documents: documents,
		Users:     f.users,
		Verifier:  f.verifier,
	}, logging.Discard())
	f.handler = f.server.Handler()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := f.verifier.Issue(auth.Identity{UserID: userID, Name: "Name " + userID})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (f *apiFixture) createProject(t *testing.T, creator string) project.Project {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/projects", creator, map[string]string{"name": "Apollo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[project.Project](t, rec)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[healthResponse](t, rec)
	require.Equal(t, "ok", body.Status)
	require.Zero(t, body.Hub.Connections)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/projects", "/api/documents/d1", "/api/calls/c1/participants"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Equal(t, "unauthorized", decode[map[string]string](t, rec)["error"])
	}
}

func TestAuthenticatedRequestRefreshesUser(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/projects", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := f.users.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Name alice", u.Name)
}

func TestProjectLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	proj := f.createProject(t, "alice")
	require.Equal(t, "alice", proj.CreatorID)
	require.NotEmpty(t, proj.InviteCode)

	rec := f.do(t, http.MethodGet, "/api/projects", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]project.Project](t, rec), 1)

	// Join through the invite code.
	rec = f.do(t, http.MethodPost, "/api/request-join", "bob", map[string]string{"inviteCode": proj.InviteCode})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode[map[string]any](t, rec)["requested"])

	rec = f.do(t, http.MethodPost, "/api/request-join", "bob", map[string]string{"inviteCode": proj.InviteCode})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decode[map[string]any](t, rec)["requested"])

	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[project.Details](t, rec)
	require.Len(t, details.PendingRequests, 1)
	require.Equal(t, "bob", details.PendingRequests[0].UserID)

	rec = f.do(t, http.MethodPost, "/api/handle-request", "alice", map[string]string{
		"projectId": proj.ID, "userId": "bob", "action": "approve",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID, "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details = decode[project.Details](t, rec)
	require.Len(t, details.Members, 2)
	require.Empty(t, details.PendingRequests)

	rec = f.do(t, http.MethodPost, "/api/request-join", "bob", map[string]string{"inviteCode": proj.InviteCode})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/leave", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID, "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/projects/"+proj.ID, "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/projects/"+proj.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID, "alice", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRequestValidation(t *testing.T) {
	f := newAPIFixture(t)
	proj := f.createProject(t, "alice")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"unknown action", map[string]string{"projectId": proj.ID, "userId": "bob", "action": "maybe"}, http.StatusBadRequest},
		{"missing user", map[string]string{"projectId": proj.ID, "action": "approve"}, http.StatusBadRequest},
		{"no pending request", map[string]string{"projectId": proj.ID, "userId": "bob", "action": "deny"}, http.StatusNotFound},
		{"unknown project", map[string]string{"projectId": "nope", "userId": "bob", "action": "reject"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/handle-request", "alice", tt.body)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMembershipErrors(t *testing.T) {
	f := newAPIFixture(t)
	proj := f.createProject(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/projects", "alice", map[string]string{"name": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/request-join", "bob", map[string]string{"inviteCode": "missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/request-join", "bob", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/leave", "alice", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/kick", "alice", map[string]string{"userId": "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/kick", "bob", map[string]string{"userId": "carol"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Kicking someone who is not a member is a no-op.
	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/kick", "alice", map[string]string{"userId": "carol"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentsAndMessages(t *testing.T) {
	f := newAPIFixture(t)
	proj := f.createProject(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/documents", "alice", map[string]string{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/documents", "bob", map[string]string{"title": "Notes"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/documents", "alice", map[string]string{"title": "Notes"})
	require.Equal(t, http.StatusCreated, rec.Code)
	doc := decode[document.Document](t, rec)
	require.Equal(t, proj.ID, doc.ProjectID)
	require.Empty(t, doc.Content)

	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/documents", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]document.Document](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/api/documents/"+doc.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/documents/"+doc.ID, "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/documents/missing", "alice", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]any](t, rec))
	rec = f.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallParticipantsEmpty(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/calls/standup/participants", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "standup", body["roomId"])
}

func TestWriteServiceError(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		err  error
		want int
	}{
		{project.ErrInvalidInput, http.StatusBadRequest},
		{project.ErrCreatorCannotLeave, http.StatusBadRequest},
		{project.ErrForbidden, http.StatusForbidden},
		{project.ErrProjectNotFound, http.StatusNotFound},
		{project.ErrRequestNotFound, http.StatusNotFound},
		{fmt.Errorf("get document: %w", repository.ErrNotFound), http.StatusNotFound},
		{project.ErrAlreadyMember, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.server.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}
