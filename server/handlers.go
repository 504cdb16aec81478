package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/users"
)

// SessionResponse is the public view of a device session. The credential is never exposed.
type SessionResponse struct {
	Status        string          `json:"status"`
	Authenticated bool            `json:"authenticated"`
	Role          users.Role      `json:"role,omitempty"`
	User          *users.Customer `json:"user,omitempty"`
	Merchant      *users.Merchant `json:"merchant,omitempty"`
}

// SessionAPIHandler returns the device's session as JSON (GET /api/session)
func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		session := s.resolvedSnapshot(r)
		writeJSON(w, http.StatusOK, SessionResponse{
			Status:        string(session.Status),
			Authenticated: session.Authenticated(),
			Role:          session.Role,
			User:          session.Customer,
			Merchant:      session.Merchant,
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"devices": s.sessions.Len(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}
