package server

import (
	"log/slog"
	"net/http"

	"github.com/Tyrowin/collabhub/internal/auth"
	"github.com/Tyrowin/collabhub/internal/config"
	"github.com/Tyrowin/collabhub/internal/domain/chat"
	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/domain/user"
	"github.com/Tyrowin/collabhub/internal/realtime"
	"github.com/gorilla/websocket"
)

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Hub       *realtime.Hub
	Projects  *project.Service
	Messages  chat.Repository
	Documents document.Repository
	Users     user.Repository
	Verifier  *auth.Verifier
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	deps       Deps
	origins    *OriginPolicy
	upgrader   websocket.Upgrader
	clientOpts realtime.ClientOptions
	logger     *slog.Logger
}

// New creates a Server from configuration and dependencies.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	s := &Server{
		deps:    deps,
		origins: NewOriginPolicy(cfg.Server.AllowedOrigins, logger),
		clientOpts: realtime.ClientOptions{
			MaxMessageSize: cfg.Server.MaxMessageSize,
			SendBuffer:     cfg.Hub.SendBuffer,
			RateBurst:      cfg.Server.RateLimit.Burst,
			RateInterval:   cfg.Server.RateLimit.RefillInterval,
		},
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.CheckOrigin,
	}
	return s
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
