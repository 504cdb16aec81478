package server

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zenty/portal/backend"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/utils"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

// recentTransactions is how many payments the dashboard lists
const recentTransactions = 3

type DashboardData struct {
	Stats        *backend.Stats
	Transactions []backend.Transaction
	Palm         *backend.PalmStatus
}

type HistoryData struct {
	Query        string
	Transactions []backend.Transaction
	Total        int // Before filtering
}

type PlaceholderData struct {
	Message string
}

// DashboardHandler loads stats, recent payments and palm status concurrently (GET /dashboard)
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := customerSession(w, r)
		if !ok {
			return
		}
		token, userID := session.Credential, session.Customer.ID

		var data DashboardData
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			data.Stats, err = s.api.Stats(ctx, token, userID)
			return err
		})
		g.Go(func() error {
			txs, err := s.api.Transactions(ctx, token, userID)
			if err != nil {
				return err
			}
			data.Transactions = newestFirst(txs)
			if len(data.Transactions) > recentTransactions {
				data.Transactions = data.Transactions[:recentTransactions]
			}
			return nil
		})
		g.Go(func() (err error) {
			data.Palm, err = s.api.PalmStatus(ctx, token, userID)
			return err
		})

		page := s.pageData(r, "Tableau de bord", &data)
		if err := g.Wait(); err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Dashboard: failed to load customer data")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pageDashboard, page)
	}
}

func (s *Server) PalmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := customerSession(w, r)
		if !ok {
			return
		}
		status, err := s.api.PalmStatus(r.Context(), session.Credential, session.Customer.ID)
		page := s.pageData(r, "Ma paume", status)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Palm: failed to load status")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pagePalm, page)
	}
}

func (s *Server) CardsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := customerSession(w, r)
		if !ok {
			return
		}
		cards, err := s.api.Cards(r.Context(), session.Credential, session.Customer.ID)
		page := s.pageData(r, "Mes cartes", cards)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Cards: failed to load cards")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pageCards, page)
	}
}

// HistoryHandler lists every payment, optionally filtered by ?q= (GET /history)
func (s *Server) HistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := customerSession(w, r)
		if !ok {
			return
		}
		query := strings.TrimSpace(r.URL.Query().Get("q"))

		txs, err := s.api.Transactions(r.Context(), session.Credential, session.Customer.ID)
		data := HistoryData{Query: query, Total: len(txs), Transactions: FilterTransactions(newestFirst(txs), query)}
		page := s.pageData(r, "Historique", data)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("History: failed to load transactions")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pageHistory, page)
	}
}

// FilterTransactions keeps the transactions whose merchant name contains query
// (case-insensitive) or whose amount contains it.
func FilterTransactions(txs []backend.Transaction, query string) []backend.Transaction {
	if query == "" {
		return txs
	}
	needle := strings.ToLower(query)
	out := make([]backend.Transaction, 0, len(txs))
	for _, tx := range txs {
		amount := strconv.FormatFloat(tx.Amount, 'f', -1, 64)
		if strings.Contains(strings.ToLower(tx.Merchant), needle) || strings.Contains(amount, needle) {
			out = append(out, tx)
		}
	}
	return out
}

func newestFirst(txs []backend.Transaction) []backend.Transaction {
	out := make([]backend.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *Server) SettingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageSettings, s.pageData(r, "Paramètres", nil))
	}
}

// SettingsPostHandler applies a partial profile update. Blank fields are left unchanged.
func (s *Server) SettingsPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		update := users.ProfileUpdate{
			FirstName: utils.NonEmpty(strings.TrimSpace(r.PostFormValue("firstName"))),
			LastName:  utils.NonEmpty(strings.TrimSpace(r.PostFormValue("lastName"))),
			Email:     utils.NonEmpty(strings.TrimSpace(r.PostFormValue("email"))),
			Phone:     utils.NonEmpty(strings.TrimSpace(r.PostFormValue("phone"))),
		}
		if update.Empty() {
			redirectWithError(w, r, RouteSettings, "Aucune modification à enregistrer")
			return
		}

		err := storeFrom(r.Context()).UpdateProfile(r.Context(), update)
		switch {
		case err == nil:
			redirectWithValues(w, r, RouteSettings, url.Values{"notice": {"Profil mis à jour"}})
		case perrors.Is(err, perrors.ErrSessionExpired):
			redirectWithError(w, r, RouteHome, msgSessionExpired)
		case perrors.Is(err, perrors.ErrValidation):
			redirectWithError(w, r, RouteSettings, perrors.Message(err))
		default:
			log.Err(err).Msg("Settings: profile update failed")
			redirectWithError(w, r, RouteSettings, backendErrorMessage(err))
		}
	}
}

// DeleteAccountHandler deletes the customer account and signs the device out (POST /settings/delete)
func (s *Server) DeleteAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := storeFrom(r.Context()).DeleteAccount(r.Context())
		switch {
		case err == nil:
			redirectWithValues(w, r, RouteHome, url.Values{"notice": {"Votre compte a été supprimé"}})
		case perrors.Is(err, perrors.ErrSessionExpired):
			redirectWithError(w, r, RouteHome, msgSessionExpired)
		default:
			log.Err(err).Msg("Settings: account deletion failed")
			redirectWithError(w, r, RouteSettings, backendErrorMessage(err))
		}
	}
}

func (s *Server) PlaceholderHandler(title, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pagePlaceholder, s.pageData(r, title, PlaceholderData{Message: message}))
	}
}

// customerSession returns the signed-in customer's session. A logout racing the
// request leaves none, and the visitor is sent home.
func customerSession(w http.ResponseWriter, r *http.Request) (sessions.Session, bool) {
	session := storeFrom(r.Context()).Snapshot()
	if session.Customer == nil {
		redirectSuccess(w, r, RouteHome)
		return session, false
	}
	return session, true
}

// sessionRejected handles a 401 from a page-level backend call. The store revalidates
// the credential; if it is gone the visitor is sent home and true is returned.
func (s *Server) sessionRejected(w http.ResponseWriter, r *http.Request, err error) bool {
	if perrors.StatusCode(err) != http.StatusUnauthorized {
		return false
	}
	store := storeFrom(r.Context())
	if refreshErr := store.RefreshProfile(r.Context()); refreshErr != nil {
		log.Err(refreshErr).Msg("Credential rejected by backend")
	}
	if store.Snapshot().Authenticated() {
		return false
	}
	redirectWithError(w, r, RouteHome, msgSessionExpired)
	return true
}
