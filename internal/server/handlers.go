package server

import (
	"net/http"

	"github.com/Tyrowin/collabhub/internal/realtime"
)

// handleWebSocket upgrades an authenticated request and hands the connection
// to the hub, which starts its read and write pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := realtime.NewClient(conn, s.deps.Hub, r.RemoteAddr, id.UserID, id.Name, s.clientOpts)
	if !s.deps.Hub.Register(client) {
		_ = conn.Close()
	}
}

type healthResponse struct {
	Status string         `json:"status"`
	Hub    realtime.Stats `json:"hub"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Hub: s.deps.Hub.Stats()})
}
