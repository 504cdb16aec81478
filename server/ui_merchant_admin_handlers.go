package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/backend"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/utils"
	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

const filterDateLayout = "2006-01-02"

// ProductsData drives the catalog editor. EditID is set while an existing product is edited.
type ProductsData struct {
	Products []pos.Product
	Form     users.ProductForm
	EditID   string
	Fields   map[string]string
}

type TerminalsData struct {
	Terminals []backend.Terminal
	Form      users.TerminalForm
	Fields    map[string]string
}

type PaymentsData struct {
	Query    string
	Payments []backend.Payment
	Total    int     // Before filtering
	Received float64 // Completed payments among those listed
}

type ReceiptsData struct {
	Start    string
	End      string
	Payments []backend.Payment
}

type FinancesData struct {
	Finances *backend.Finances
	Fields   map[string]string
}

type SupportData struct {
	Action string
	Form   users.SupportForm
	Fields map[string]string
	FAQ    []FAQEntry
}

type FAQEntry struct {
	Question string
	Answer   string
}

// ProductsHandler lists the catalog with the product editor (GET /merchant/products).
// ?edit=<id> prefills the editor with an existing product.
func (s *Server) ProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		data := ProductsData{Form: users.ProductForm{TVA: "20"}}
		s.renderProducts(w, r, session, http.StatusOK, data, r.URL.Query().Get("edit"))
	}
}

func (s *Server) renderProducts(w http.ResponseWriter, r *http.Request, session sessions.Session, status int, data ProductsData, editID string) {
	products, err := s.api.Products(r.Context(), session.Credential)
	if err != nil && s.sessionRejected(w, r, err) {
		return
	}
	data.Products = products
	if editID != "" && data.EditID == "" {
		for _, p := range products {
			if p.ID == editID {
				data.Form, data.EditID = users.ProductFormFrom(p), p.ID
			}
		}
	}

	page := s.pageData(r, "Produits", data)
	if err != nil {
		log.Err(err).Msg("Products: failed to load catalog")
		page.Error = backendErrorMessage(err)
	}
	s.render(w, r, status, pageProducts, page)
}

// ProductSaveHandler creates a product, or updates the one named by the id field
// (POST /merchant/products).
func (s *Server) ProductSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		id := r.PostFormValue("id")
		form := users.ProductForm{
			Name:        r.PostFormValue("name"),
			Price:       r.PostFormValue("price"),
			TVA:         r.PostFormValue("tva"),
			Category:    r.PostFormValue("category"),
			Description: r.PostFormValue("description"),
		}

		var valErr *perrors.ValidationError
		if err := form.Validate(); perrors.As(err, &valErr) {
			s.renderProducts(w, r, session, http.StatusUnprocessableEntity, ProductsData{Form: form, EditID: id, Fields: valErr.Fields}, "")
			return
		}

		var err error
		notice := "Produit ajouté"
		if id == "" {
			_, err = s.api.CreateProduct(r.Context(), session.Credential, form.Product(""))
		} else {
			notice = "Produit mis à jour"
			_, err = s.api.UpdateProduct(r.Context(), session.Credential, form.Product(id))
		}
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Str("product", id).Msg("Products: save failed")
			redirectWithError(w, r, RouteMerchantProducts, backendErrorMessage(err))
			return
		}
		redirectWithValues(w, r, RouteMerchantProducts, url.Values{"notice": {notice}})
	}
}

// ProductDeleteHandler removes a product from the catalog (POST /merchant/products/{id}/delete)
func (s *Server) ProductDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		if err := s.api.DeleteProduct(r.Context(), session.Credential, id); err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Str("product", id).Msg("Products: delete failed")
			redirectWithError(w, r, RouteMerchantProducts, backendErrorMessage(err))
			return
		}
		redirectWithValues(w, r, RouteMerchantProducts, url.Values{"notice": {"Produit supprimé"}})
	}
}

func (s *Server) TerminalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		s.renderTerminals(w, r, session, http.StatusOK, TerminalsData{})
	}
}

func (s *Server) renderTerminals(w http.ResponseWriter, r *http.Request, session sessions.Session, status int, data TerminalsData) {
	terminals, err := s.api.Terminals(r.Context(), session.Credential, session.Merchant.ID)
	if err != nil && s.sessionRejected(w, r, err) {
		return
	}
	data.Terminals = terminals
	page := s.pageData(r, "Terminaux", data)
	if err != nil {
		log.Err(err).Msg("Terminals: failed to load terminals")
		page.Error = backendErrorMessage(err)
	}
	s.render(w, r, status, pageTerminals, page)
}

// TerminalCreateHandler registers a new terminal (POST /merchant/terminals)
func (s *Server) TerminalCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := users.TerminalForm{
			Name:     strings.TrimSpace(r.PostFormValue("name")),
			Location: strings.TrimSpace(r.PostFormValue("location")),
		}
		var valErr *perrors.ValidationError
		if err := form.Validate(); perrors.As(err, &valErr) {
			s.renderTerminals(w, r, session, http.StatusUnprocessableEntity, TerminalsData{Form: form, Fields: valErr.Fields})
			return
		}

		terminal, err := s.api.CreateTerminal(r.Context(), session.Credential, session.Merchant.ID, form)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Terminals: create failed")
			redirectWithError(w, r, RouteMerchantTerminals, backendErrorMessage(err))
			return
		}
		redirectWithValues(w, r, RouteMerchantTerminals, url.Values{"notice": {"Terminal " + terminal.TerminalUID + " ajouté"}})
	}
}

// PaymentsHandler lists received payments, optionally filtered by ?q= (GET /merchant/payments)
func (s *Server) PaymentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		query := strings.TrimSpace(r.URL.Query().Get("q"))

		payments, err := s.api.MerchantTransactions(r.Context(), session.Credential, session.Merchant.ID, backend.PaymentFilter{})
		if err != nil && s.sessionRejected(w, r, err) {
			return
		}
		data := PaymentsData{Query: query, Total: len(payments), Payments: FilterPayments(payments, query)}
		for _, p := range data.Payments {
			if p.Status == "completed" {
				data.Received += p.Amount
			}
		}

		page := s.pageData(r, "Paiements", data)
		if err != nil {
			log.Err(err).Msg("Payments: failed to load transactions")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pagePayments, page)
	}
}

// FilterPayments keeps the payments whose payer, terminal or amount contains query
// (case-insensitive).
func FilterPayments(payments []backend.Payment, query string) []backend.Payment {
	if query == "" {
		return payments
	}
	needle := strings.ToLower(query)
	out := make([]backend.Payment, 0, len(payments))
	for _, p := range payments {
		haystack := []string{strconv.FormatFloat(p.Amount, 'f', -1, 64), p.Description}
		if p.User != nil {
			haystack = append(haystack, p.User.FirstName+" "+p.User.LastName, p.User.Email)
		}
		if p.Terminal != nil {
			haystack = append(haystack, p.Terminal.Name, p.Terminal.TerminalUID)
		}
		for _, h := range haystack {
			if strings.Contains(strings.ToLower(h), needle) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ReceiptsHandler lists payments between ?start= and ?end= with receipt downloads
// (GET /merchant/receipts).
func (s *Server) ReceiptsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		data := ReceiptsData{Start: r.URL.Query().Get("start"), End: r.URL.Query().Get("end")}
		filter, filterErr := parsePaymentFilter(data.Start, data.End)

		var err error
		if filterErr == nil {
			data.Payments, err = s.api.MerchantTransactions(r.Context(), session.Credential, session.Merchant.ID, filter)
			if err != nil && s.sessionRejected(w, r, err) {
				return
			}
		}

		page := s.pageData(r, "Reçus", data)
		switch {
		case filterErr != nil:
			page.Error = "Période invalide"
		case err != nil:
			log.Err(err).Msg("Receipts: failed to load transactions")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pageReceipts, page)
	}
}

func parsePaymentFilter(start, end string) (backend.PaymentFilter, error) {
	var filter backend.PaymentFilter
	var err error
	if start != "" {
		if filter.Start, err = time.Parse(filterDateLayout, start); err != nil {
			return filter, err
		}
	}
	if end != "" {
		if filter.End, err = time.Parse(filterDateLayout, end); err != nil {
			return filter, err
		}
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return filter, perrors.ErrValidation
	}
	return filter, nil
}

// ReceiptDownloadHandler streams the receipt of one payment (GET /merchant/receipts/{id})
func (s *Server) ReceiptDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		receipt, err := s.api.Receipt(r.Context(), session.Credential, id)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Str("transaction", id).Msg("Receipts: download failed")
			msg := backendErrorMessage(err)
			if perrors.StatusCode(err) == http.StatusNotFound {
				msg = "Reçu introuvable"
			}
			redirectWithError(w, r, RouteMerchantReceipts, msg)
			return
		}

		contentType := receipt.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+url.PathEscape(id)+`.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(receipt.Body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(receipt.Body)
	}
}

// FinancesHandler shows the pending balance, payouts and payout IBAN (GET /merchant/finances)
func (s *Server) FinancesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		s.renderFinances(w, r, session, http.StatusOK, FinancesData{})
	}
}

func (s *Server) renderFinances(w http.ResponseWriter, r *http.Request, session sessions.Session, status int, data FinancesData) {
	finances, err := s.api.Finances(r.Context(), session.Credential, session.Merchant.ID)
	if err != nil && s.sessionRejected(w, r, err) {
		return
	}
	data.Finances = finances
	page := s.pageData(r, "Finances", data)
	if err != nil {
		log.Err(err).Msg("Finances: failed to load finances")
		page.Error = backendErrorMessage(err)
	}
	s.render(w, r, status, pageFinances, page)
}

// FinancesIBANHandler changes the payout IBAN through the session store, which owns the
// merchant profile (POST /merchant/finances).
func (s *Server) FinancesIBANHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := merchantSession(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		iban := users.NormalizeIBAN(r.PostFormValue("iban"))
		if iban == "" {
			redirectWithError(w, r, RouteMerchantFinances, "IBAN obligatoire")
			return
		}

		err := storeFrom(r.Context()).UpdateMerchantProfile(r.Context(), users.MerchantProfileUpdate{IBAN: &iban})
		var valErr *perrors.ValidationError
		switch {
		case err == nil:
			redirectWithValues(w, r, RouteMerchantFinances, url.Values{"notice": {"IBAN mis à jour avec succès"}})
		case perrors.Is(err, perrors.ErrSessionExpired):
			redirectWithError(w, r, RouteHome, msgSessionExpired)
		case perrors.As(err, &valErr):
			s.renderFinances(w, r, session, http.StatusUnprocessableEntity, FinancesData{Fields: valErr.Fields})
		default:
			log.Err(err).Msg("Finances: IBAN update failed")
			redirectWithError(w, r, RouteMerchantFinances, backendErrorMessage(err))
		}
	}
}

func (s *Server) MerchantSettingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageMerchantSettings, s.pageData(r, "Paramètres", nil))
	}
}

// MerchantSettingsPostHandler applies a partial company profile update (POST /merchant/settings)
func (s *Server) MerchantSettingsPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		update := users.MerchantProfileUpdate{
			CompanyName: utils.NonEmpty(strings.TrimSpace(r.PostFormValue("companyName"))),
			Phone:       utils.NonEmpty(strings.TrimSpace(r.PostFormValue("phone"))),
			Address:     utils.NonEmpty(strings.TrimSpace(r.PostFormValue("address"))),
		}
		if update.Empty() {
			redirectWithError(w, r, RouteMerchantSettings, "Aucune modification à enregistrer")
			return
		}

		err := storeFrom(r.Context()).UpdateMerchantProfile(r.Context(), update)
		switch {
		case err == nil:
			redirectWithValues(w, r, RouteMerchantSettings, url.Values{"notice": {"Profil mis à jour"}})
		case perrors.Is(err, perrors.ErrSessionExpired):
			redirectWithError(w, r, RouteHome, msgSessionExpired)
		case perrors.Is(err, perrors.ErrValidation):
			redirectWithError(w, r, RouteMerchantSettings, perrors.Message(err))
		default:
			log.Err(err).Msg("Merchant settings: profile update failed")
			redirectWithError(w, r, RouteMerchantSettings, backendErrorMessage(err))
		}
	}
}

var merchantFAQ = []FAQEntry{
	{
		Question: "Comment changer mes informations bancaires ?",
		Answer:   "Rendez-vous dans l'onglet Finances pour mettre à jour votre IBAN de versement.",
	},
	{
		Question: "Combien de temps prennent les virements vers mon compte ?",
		Answer:   "Les virements sont effectués chaque jour ouvrable. Selon votre banque, les fonds apparaissent sous 24 à 48 heures.",
	},
	{
		Question: "Comment ajouter un nouveau terminal de paiement ?",
		Answer:   "Dans l'onglet Terminaux, renseignez le nom et l'emplacement du terminal puis associez l'appareil avec son identifiant.",
	},
	{
		Question: "Que faire en cas de problème technique avec un terminal ?",
		Answer:   "Vérifiez la connexion internet puis redémarrez le terminal. Si le problème persiste, écrivez-nous avec le formulaire ci-dessous.",
	},
}

var customerFAQ = []FAQEntry{
	{
		Question: "Comment enregistrer ma paume ?",
		Answer:   "Présentez-vous devant un terminal Zenty, scannez le QR code affiché puis autorisez le terminal depuis votre compte.",
	},
	{
		Question: "Comment changer ma carte par défaut ?",
		Answer:   "Vos cartes sont listées dans l'onglet Cartes. Contactez-nous pour en changer.",
	},
}

// SupportGetHandler shows the FAQ and contact form of path, which is the customer or
// the merchant support page.
func (s *Server) SupportGetHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSupport(w, r, http.StatusOK, SupportData{Action: path})
	}
}

func (s *Server) renderSupport(w http.ResponseWriter, r *http.Request, status int, data SupportData) {
	data.FAQ = customerFAQ
	if data.Action == RouteMerchantSupport {
		data.FAQ = merchantFAQ
	}
	s.render(w, r, status, pageSupport, s.pageData(r, "Support", data))
}

// SupportPostHandler forwards a contact request to the backend.
func (s *Server) SupportPostHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := users.SupportForm{
			Subject: strings.TrimSpace(r.PostFormValue("subject")),
			Message: strings.TrimSpace(r.PostFormValue("message")),
		}
		var valErr *perrors.ValidationError
		if err := form.Validate(); perrors.As(err, &valErr) {
			s.renderSupport(w, r, http.StatusUnprocessableEntity, SupportData{Action: path, Form: form, Fields: valErr.Fields})
			return
		}

		session := storeFrom(r.Context()).Snapshot()
		if err := s.api.ContactSupport(r.Context(), session.Credential, form); err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Support: contact request failed")
			redirectWithError(w, r, path, "Impossible d'envoyer le message. Veuillez réessayer plus tard.")
			return
		}
		redirectWithValues(w, r, path, url.Values{"notice": {"Votre message a bien été envoyé. Notre équipe vous répondra rapidement."}})
	}
}

// merchantSession returns the signed-in merchant's session, sending the visitor home
// when a logout raced the request.
func merchantSession(w http.ResponseWriter, r *http.Request) (sessions.Session, bool) {
	session := storeFrom(r.Context()).Snapshot()
	if session.Merchant == nil {
		redirectSuccess(w, r, RouteHome)
		return session, false
	}
	return session, true
}
