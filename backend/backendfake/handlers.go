package backendfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/users"
)

const contentTypeJSON = "application/json"

func (b *Backend) initRoutes() {
	b.handle("POST /api/v1/auth/login", b.login)
	b.handle("GET /api/v1/auth", b.authenticated(users.RoleCustomer, b.customerProfile))
	b.handle("POST /api/v1/users", b.registerCustomer)
	b.handle("POST /api/v1/merchants/register", b.registerMerchant)
	b.handle("GET /api/v1/merchants/me", b.authenticated(users.RoleMerchant, b.merchantProfile))
	b.handle("PUT /api/v1/users/profile", b.authenticated(users.RoleCustomer, b.updateProfile))
	b.handle("DELETE /api/v1/users/{id}", b.authenticated(users.RoleCustomer, b.deleteUser))
	b.handle("PUT /api/v1/sessions/{id}", b.authenticated(users.RoleCustomer, b.bindSession))
	b.handle("POST /api/auth/forgot-password", b.forgotPassword)
	b.handle("POST /api/auth/reset-password", b.resetPassword)
	b.handle("GET /api/v1/users/{id}/stats", b.authenticated(users.RoleCustomer, b.stats))
	b.handle("GET /api/v1/users/{id}/transactions", b.authenticated(users.RoleCustomer, b.transactions))
	b.handle("GET /api/v1/users/{id}/palm/status", b.authenticated(users.RoleCustomer, b.palmStatus))
	b.handle("GET /api/v1/users/{id}/cards", b.authenticated(users.RoleCustomer, b.cards))
	b.handle("GET /api/v1/products", b.authenticated("", b.listProducts))
	b.handle("POST /api/v1/products", b.authenticated(users.RoleMerchant, b.createProduct))
	b.handle("PUT /api/v1/products/{id}", b.authenticated(users.RoleMerchant, b.updateProduct))
	b.handle("DELETE /api/v1/products/{id}", b.authenticated(users.RoleMerchant, b.deleteProduct))
	b.handle("PUT /api/v1/merchants/me", b.authenticated(users.RoleMerchant, b.updateMerchant))
	b.handle("GET /api/v1/merchants/{id}/terminals", b.authenticated(users.RoleMerchant, b.terminals))
	b.handle("POST /api/v1/merchants/{id}/terminals", b.authenticated(users.RoleMerchant, b.createTerminal))
	b.handle("GET /api/v1/merchants/{id}/transactions", b.authenticated(users.RoleMerchant, b.merchantTransactions))
	b.handle("GET /api/v1/merchants/{id}/finances", b.authenticated(users.RoleMerchant, b.finances))
	b.handle("GET /api/v1/merchants/transactions/{id}/receipt", b.authenticated(users.RoleMerchant, b.receipt))
	b.handle("POST /api/v1/support/contact", b.authenticated("", b.contactSupport))
}

// handle registers a route that counts hits and honours queued failures.
func (b *Backend) handle(pattern string, h http.HandlerFunc) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[pattern]++
		var fail *failure
		if queued := b.failures[pattern]; len(queued) > 0 {
			fail = &queued[0]
			b.failures[pattern] = queued[1:]
		}
		b.mu.Unlock()

		if fail != nil {
			writeMsg(w, fail.status, fail.message)
			return
		}
		h(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, claims *tokenClaims)

// authenticated reads the credential from Authorization or x-auth-token. An empty role
// accepts any account kind.
func (b *Backend) authenticated(role users.Role, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			raw = r.Header.Get(backend.AuthTokenHeader)
		}
		claims, err := b.signer.parse(raw)
		if err != nil {
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		b.mu.Lock()
		_, revoked := b.revoked[claims.ID]
		b.mu.Unlock()
		if revoked {
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		if role != "" && claims.Role != role {
			writeMsg(w, http.StatusForbidden, "Access denied")
			return
		}
		next(w, r, claims)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	subject, role, hash := b.findByEmail(creds.Email)
	b.mu.Unlock()

	if subject == "" || !users.CheckPasswordHash(creds.Password, hash) {
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	b.writeToken(w, http.StatusOK, subject, role)
}

func (b *Backend) findByEmail(email string) (string, users.Role, string) {
	for id, c := range b.customers {
		if strings.EqualFold(c.profile.Email, email) {
			return id, users.RoleCustomer, c.passwordHash
		}
	}
	for id, m := range b.merchants {
		if strings.EqualFold(m.profile.Email, email) {
			return id, users.RoleMerchant, m.passwordHash
		}
	}
	return "", "", ""
}

func (b *Backend) registerCustomer(w http.ResponseWriter, r *http.Request) {
	var reg users.CustomerRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	created, err := b.createCustomer(users.Customer{
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Phone:     reg.Phone,
	}, reg.Password)
	b.mu.Unlock()
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "User already exists")
		return
	}
	b.writeToken(w, http.StatusCreated, created.ID, users.RoleCustomer)
}

func (b *Backend) registerMerchant(w http.ResponseWriter, r *http.Request) {
	var reg users.MerchantRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	created, err := b.createMerchant(users.Merchant{
		CompanyName: reg.CompanyName,
		Email:       reg.Email,
		Phone:       reg.Phone,
		Address:     reg.Address,
	}, reg.Password)
	b.mu.Unlock()
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Merchant already exists")
		return
	}
	b.writeToken(w, http.StatusCreated, created.ID, users.RoleMerchant)
}

func (b *Backend) customerProfile(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.delay(r.Context())

	b.mu.Lock()
	acc, ok := b.customers[claims.Subject]
	var profile users.Customer
	if ok {
		profile = acc.profile
	}
	b.mu.Unlock()

	if !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (b *Backend) merchantProfile(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.delay(r.Context())

	b.mu.Lock()
	acc, ok := b.merchants[claims.Subject]
	var profile users.Merchant
	if ok {
		profile = acc.profile
	}
	b.mu.Unlock()

	if !ok {
		writeMsg(w, http.StatusNotFound, "Merchant not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var update users.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.customers[claims.Subject]
	if !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	if update.FirstName != nil {
		acc.profile.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		acc.profile.LastName = *update.LastName
	}
	if update.Email != nil {
		acc.profile.Email = *update.Email
	}
	if update.Phone != nil {
		acc.profile.Phone = *update.Phone
	}
	writeJSON(w, http.StatusOK, acc.profile)
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	id := r.PathValue("id")
	if id != claims.Subject {
		writeMsg(w, http.StatusForbidden, "Access denied")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.customers[id]; !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	delete(b.customers, id)
	writeMsg(w, http.StatusOK, "User deleted")
}

func (b *Backend) bindSession(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var req backend.BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeMsg(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.UserID != claims.Subject {
		writeMsg(w, http.StatusForbidden, "Access denied")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[r.PathValue("id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Session not found")
		return
	}
	if s.State != HandoffPending {
		writeMsg(w, http.StatusConflict, fmt.Sprintf("Session is %s", s.State))
		return
	}
	s.State = HandoffAuthorized
	s.UserID = req.UserID
	writeMsg(w, http.StatusOK, "Session authorized")
}

func (b *Backend) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req backend.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeMsg(w, http.StatusBadRequest, "Email is required")
		return
	}

	b.mu.Lock()
	if subject, _, _ := b.findByEmail(req.Email); subject != "" {
		b.resetTokens[uuid.NewString()] = req.Email
	}
	b.mu.Unlock()

	// Same answer whether or not the account exists
	writeMsg(w, http.StatusOK, "If the account exists, an email has been sent")
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req backend.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Password) < users.MinPasswordLength {
		writeMsg(w, http.StatusBadRequest, "Password too short")
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "Server error")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.resetTokens[req.Token]
	if !ok {
		writeMsg(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	delete(b.resetTokens, req.Token)
	subject, role, _ := b.findByEmail(email)
	switch role {
	case users.RoleCustomer:
		b.customers[subject].passwordHash = hash
	case users.RoleMerchant:
		b.merchants[subject].passwordHash = hash
	}
	writeMsg(w, http.StatusOK, "Password updated")
}

// ownCustomer resolves the {id} path value, which must be the caller's own account.
func (b *Backend) ownCustomer(w http.ResponseWriter, r *http.Request, claims *tokenClaims) (*customerAccount, bool) {
	id := r.PathValue("id")
	if id != claims.Subject {
		writeMsg(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	acc, ok := b.customers[id]
	if !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	return acc, true
}

func (b *Backend) stats(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownCustomer(w, r, claims)
	if !ok {
		return
	}

	now := NowTimeFunc()
	var stats backend.Stats
	var total float64
	for i, tx := range acc.transactions {
		if tx.Status != "completed" {
			continue
		}
		total += tx.Amount
		if tx.Date.Year() == now.Year() && tx.Date.Month() == now.Month() {
			stats.PaymentsThisMonth++
		}
		if stats.LastUsed == nil || tx.Date.After(*stats.LastUsed) {
			stats.LastUsed = &acc.transactions[i].Date
		}
	}
	stats.TotalAmount = fmt.Sprintf("%.2f", total)
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (b *Backend) transactions(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownCustomer(w, r, claims)
	if !ok {
		return
	}
	txs := make([]backend.Transaction, len(acc.transactions))
	copy(txs, acc.transactions)
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (b *Backend) palmStatus(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownCustomer(w, r, claims)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, acc.palm)
}

func (b *Backend) cards(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownCustomer(w, r, claims)
	if !ok {
		return
	}
	cards := make([]backend.Card, len(acc.cards))
	copy(cards, acc.cards)
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (b *Backend) listProducts(w http.ResponseWriter, _ *http.Request, _ *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"products": b.products})
}

func (b *Backend) writeToken(w http.ResponseWriter, status int, subject string, role users.Role) {
	token, err := b.signer.issue(subject, role)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, status, backend.TokenResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

