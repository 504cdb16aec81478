package server

import (
	"net/http"

	"github.com/zenty/portal/guard"
	"github.com/zenty/portal/internal/metrics"
)

// loadingRetrySeconds is the Refresh delay of the loading page
const loadingRetrySeconds = "1"

// RequireAccess evaluates the route guard on every request. It waits a bounded time
// for the session to resolve and serves the loading page if it has not.
func (s *Server) RequireAccess(req guard.Requirement) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Evaluate(s.resolvedSnapshot(r), req)
			metrics.GuardDecisionsTotal.WithLabelValues(string(req), string(decision.Action)).Inc()

			switch decision.Action {
			case guard.Loading:
				s.renderLoading(w, r, true)
			case guard.Redirect:
				redirectSuccess(w, r, decision.Location)
			default:
				next(w, r)
			}
		}
	}
}

// UnmatchedHandler sends every path no page claims back home.
func (s *Server) UnmatchedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision := guard.Unmatched()
		metrics.GuardDecisionsTotal.WithLabelValues("unmatched", string(decision.Action)).Inc()
		redirectSuccess(w, r, decision.Location)
	}
}

// renderLoading serves the loading page. With retry set the browser reloads the
// original URL shortly after.
func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request, retry bool) {
	if retry {
		w.Header().Set("Refresh", loadingRetrySeconds)
	}
	w.Header().Set("Cache-Control", "no-store")

	// While rehydrating, greet the visitor with the last persisted profile
	var data LoadingData
	if store := storeFrom(r.Context()); store != nil && !store.Snapshot().Resolved() {
		if identity, ok := store.Cached(r.Context()); ok {
			data.Name = identity.DisplayName()
		}
	}
	s.render(w, r, http.StatusOK, pageLoading, s.pageData(r, "Chargement", data))
}

type LoadingData struct {
	Name string
}
