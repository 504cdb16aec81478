package server

import (
	"net/http"

	"github.com/zenty/portal/handoff"
	"github.com/zenty/portal/users"
)

// LandingData drives the landing page and its login/register forms.
type LandingData struct {
	ShowLogin    bool
	ShowRegister bool
	Role         users.Role
	SessionID    string // Terminal hand-off to resume after login
	Email        string
	Form         users.RegistrationForm // Re-filled after a failed registration, passwords cleared
	Fields       map[string]string      // Field-level validation messages
}

func (d LandingData) IsMerchant() bool {
	return d.Role == users.RoleMerchant
}

// LandingHandler renders the public landing page (GET /)
func (s *Server) LandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sessionID := q.Get("session_id")

		// A signed-in visitor arriving from a terminal goes straight to the hand-off
		if sessionID != "" && s.resolvedSnapshot(r).Authenticated() {
			redirectSuccess(w, r, handoff.ReturnURL(sessionID))
			return
		}

		role, ok := users.ParseRole(q.Get("role"))
		if !ok {
			role = users.RoleCustomer
		}

		data := LandingData{
			ShowLogin:    q.Get("login") == "1",
			ShowRegister: q.Get("register") == "1",
			Role:         role,
			SessionID:    sessionID,
			Email:        q.Get("email"),
			Form:         users.RegistrationForm{Role: role, Email: q.Get("email")},
		}
		s.renderLanding(w, r, http.StatusOK, data)
	}
}

func (s *Server) renderLanding(w http.ResponseWriter, r *http.Request, status int, data LandingData) {
	s.render(w, r, status, pageLanding, s.pageData(r, "Payez avec votre paume", data))
}
