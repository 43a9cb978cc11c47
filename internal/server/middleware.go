package server

import (
	"context"
	"net/http"

	"github.com/Tyrowin/collabhub/internal/auth"
	"github.com/Tyrowin/collabhub/internal/domain/user"
)

type contextKey string

const identityKey contextKey = "identity"

func currentIdentity(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey).(auth.Identity)
	return id
}

// authenticate verifies the caller's bearer token and returns the identity.
// The user record is refreshed from the token claims.
func (s *Server) authenticate(r *http.Request) (auth.Identity, bool) {
	id, err := s.deps.Verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		s.logger.Debug("rejected credentials", "path", r.URL.Path, "error", err)
		return auth.Identity{}, false
	}

	if s.deps.Users != nil {
		if err := s.deps.Users.Upsert(r.Context(), &user.User{ID: id.UserID, Name: id.Name, Email: id.Email}); err != nil {
			s.logger.Warn("failed to refresh user record", "user_id", id.UserID, "error", err)
		}
	}
	return id, true
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next(w, r.WithContext(ctx))
	}
}
