package server

import "net/http"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Projects and membership
	mux.HandleFunc("GET /api/projects", s.requireAuth(s.handleListProjects))
	mux.HandleFunc("POST /api/projects", s.requireAuth(s.handleCreateProject))
	mux.HandleFunc("GET /api/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.HandleFunc("DELETE /api/projects/{id}", s.requireAuth(s.handleDeleteProject))
	mux.HandleFunc("POST /api/request-join", s.requireAuth(s.handleRequestJoin))
	mux.HandleFunc("POST /api/handle-request", s.requireAuth(s.handleJoinRequestDecision))
	mux.HandleFunc("POST /api/projects/{id}/leave", s.requireAuth(s.handleLeaveProject))
	mux.HandleFunc("POST /api/projects/{id}/kick", s.requireAuth(s.handleKickMember))

	// History and documents
	mux.HandleFunc("GET /api/projects/{id}/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("GET /api/projects/{id}/documents", s.requireAuth(s.handleListDocuments))
	mux.HandleFunc("POST /api/projects/{id}/documents", s.requireAuth(s.handleCreateDocument))
	mux.HandleFunc("GET /api/documents/{id}", s.requireAuth(s.handleGetDocument))

	mux.HandleFunc("GET /api/calls/{id}/participants", s.requireAuth(s.handleCallParticipants))
	return mux
}
