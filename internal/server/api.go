package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/repository"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, project.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrCreatorCannotLeave):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrRequestNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, project.ErrAlreadyMember):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.Projects.List(r.Context(), currentIdentity(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	proj, err := s.deps.Projects.Create(r.Context(), currentIdentity(r).UserID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	details, err := s.deps.Projects.Get(r.Context(), currentIdentity(r).UserID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Projects.Delete(r.Context(), currentIdentity(r).UserID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.InviteCode) == "" {
		writeError(w, http.StatusBadRequest, "inviteCode required")
		return
	}

	id := currentIdentity(r)
	sent, err := s.deps.Projects.RequestJoin(r.Context(), project.Requester{
		ID:    id.UserID,
		Name:  id.Name,
		Email: id.Email,
	}, strings.TrimSpace(req.InviteCode))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	msg := "request sent; waiting for approval"
	if !sent {
		msg = "request already pending"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "requested": sent})
}

func (s *Server) handleJoinRequestDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"projectId"`
		UserID    string `json:"userId"`
		Action    string `json:"action"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ProjectID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "projectId and userId required")
		return
	}

	var approve bool
	switch req.Action {
	case "approve":
		approve = true
	case "reject", "deny":
	default:
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	if err := s.deps.Projects.HandleRequest(r.Context(), currentIdentity(r).UserID, req.ProjectID, req.UserID, approve); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg := "request rejected"
	if approve {
		msg = "request approved"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleLeaveProject(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Projects.Leave(r.Context(), currentIdentity(r).UserID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "left project"})
}

func (s *Server) handleKickMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.deps.Projects.Kick(r.Context(), currentIdentity(r).UserID, r.PathValue("id"), req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := s.deps.Projects.RequireMember(r.Context(), currentIdentity(r).UserID, projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	messages, err := s.deps.Messages.ListByProject(r.Context(), projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := s.deps.Projects.RequireMember(r.Context(), currentIdentity(r).UserID, projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	docs, err := s.deps.Documents.ListByProject(r.Context(), projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := s.deps.Projects.RequireMember(r.Context(), currentIdentity(r).UserID, projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}

	now := time.Now().UTC()
	doc := &document.Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Documents.Create(r.Context(), doc); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, err := s.deps.Projects.RequireMember(r.Context(), currentIdentity(r).UserID, doc.ProjectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCallParticipants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"roomId":       r.PathValue("id"),
		"participants": s.deps.Hub.Participants(r.PathValue("id")),
	})
}
