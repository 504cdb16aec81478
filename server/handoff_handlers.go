package server

import (
	"fmt"
	"net/http"

	"github.com/zenty/portal/handoff"
	perrors "github.com/zenty/portal/internal/errors"
)

// HandoffData drives the terminal hand-off page.
type HandoffData struct {
	SessionID string
	State     handoff.State
	Target    string // Where a successful hand-off continues
}

// HandoffGetHandler shows the hand-off confirmation (GET /enregistrement?session_id=).
// Opening the page never binds the terminal session.
func (s *Server) HandoffGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		entry := handoff.Enter(sessionID, s.resolvedSnapshot(r))

		switch entry.View {
		case handoff.ViewLoading:
			// Without an id there is nothing to wait for
			s.renderLoading(w, r, sessionID != "")
		case handoff.ViewRedirect:
			redirectSuccess(w, r, entry.Location)
		default:
			s.renderHandoff(w, r, HandoffData{SessionID: sessionID, State: handoff.StateIdle})
		}
	}
}

// HandoffPostHandler authorizes the terminal session for the signed-in customer.
// Each submission, including a retry, issues exactly one bind call.
func (s *Server) HandoffPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		sessionID := r.PostFormValue("session_id")
		session := s.resolvedSnapshot(r)

		entry := handoff.Enter(sessionID, session)
		switch entry.View {
		case handoff.ViewLoading:
			redirectSuccess(w, r, handoff.ReturnURL(sessionID))
			return
		case handoff.ViewRedirect:
			redirectSuccess(w, r, entry.Location)
			return
		}

		// A retry after an error is a new submission and so a new Flow
		flow := handoff.NewFlow(sessionID, s.api)
		if err := flow.Authorize(r.Context(), session); err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			page := s.pageData(r, "Autoriser le terminal", HandoffData{SessionID: sessionID, State: flow.State()})
			page.Error = handoffErrorMessage(err)
			s.render(w, r, http.StatusOK, pageHandoff, page)
			return
		}

		delay := int(s.config.GetHandoffRedirectDelay().Seconds())
		w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s", delay, handoff.SuccessTarget))
		s.renderHandoff(w, r, HandoffData{SessionID: sessionID, State: flow.State(), Target: handoff.SuccessTarget})
	}
}

func (s *Server) renderHandoff(w http.ResponseWriter, r *http.Request, data HandoffData) {
	s.render(w, r, http.StatusOK, pageHandoff, s.pageData(r, "Autoriser le terminal", data))
}

func handoffErrorMessage(err error) string {
	switch perrors.StatusCode(err) {
	case http.StatusNotFound:
		return "Cette session de terminal est introuvable"
	case http.StatusConflict:
		return "Cette session de terminal n'est plus en attente"
	case 0:
		if perrors.Is(err, perrors.ErrNetwork) {
			return msgNetwork
		}
		return "Impossible d'autoriser le terminal"
	default:
		return perrors.Message(err)
	}
}
