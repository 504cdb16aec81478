// Package backendfake is an in-memory implementation of the Zenty backend REST contract.
// It backs the portal's tests and the FAKE_BACKEND development mode.
package backendfake

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/users"
)

// HandoffState is the server-side state of a terminal hand-off session.
type HandoffState string

const (
	HandoffPending    HandoffState = "pending"
	HandoffAuthorized HandoffState = "authorized"
	HandoffCompleted  HandoffState = "completed"
	HandoffExpired    HandoffState = "expired"
)

type HandoffSession struct {
	ID     string
	State  HandoffState
	UserID string
}

type customerAccount struct {
	profile      users.Customer
	passwordHash string
	transactions []backend.Transaction
	palm         backend.PalmStatus
	cards        []backend.Card
}

type merchantAccount struct {
	profile        users.Merchant
	passwordHash   string
	terminals      []backend.Terminal // newest first
	payments       []backend.Payment  // newest first
	payouts        []backend.Payout
	pendingBalance float64
}

// SupportMessage is a contact request received by POST /api/v1/support/contact.
type SupportMessage struct {
	From    string // Account id
	Subject string
	Message string
}

type failure struct {
	status  int
	message string
}

// Backend is safe for concurrent use.
type Backend struct {
	mu           sync.Mutex
	signer       *hmacSigner
	customers    map[string]*customerAccount // id -> account
	merchants    map[string]*merchantAccount // id -> account
	revoked      map[string]struct{}         // jti
	sessions     map[string]*HandoffSession
	resetTokens  map[string]string // reset token -> email
	products     []pos.Product
	support      []SupportMessage
	failures     map[string][]failure // route pattern -> queued failures
	hits         map[string]int       // route pattern -> request count
	profileDelay time.Duration

	mux *http.ServeMux
}

var _ http.Handler = (*Backend)(nil)

func New() *Backend {
	b := &Backend{
		signer:      newHMACSigner(),
		customers:   make(map[string]*customerAccount),
		merchants:   make(map[string]*merchantAccount),
		revoked:     make(map[string]struct{}),
		sessions:    make(map[string]*HandoffSession),
		resetTokens: make(map[string]string),
		products:    DefaultCatalog(),
		failures:    make(map[string][]failure),
		hits:        make(map[string]int),
		mux:         http.NewServeMux(),
	}
	b.initRoutes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// DefaultCatalog is the terminal catalog served by GET /api/v1/products.
func DefaultCatalog() []pos.Product {
	return []pos.Product{
		{ID: "1", Name: "Café Expresso", Price: 2.50, TaxRate: 0.1, Category: "Boissons"},
		{ID: "2", Name: "Croissant", Price: 1.80, TaxRate: 0.1, Category: "Viennoiseries"},
		{ID: "3", Name: "Sandwich Jambon", Price: 5.50, TaxRate: 0.1, Category: "Sandwichs"},
		{ID: "4", Name: "Salade César", Price: 8.90, TaxRate: 0.1, Category: "Salades"},
		{ID: "5", Name: "Coca Cola", Price: 2.20, TaxRate: 0.2, Category: "Boissons"},
		{ID: "6", Name: "Pain de mie", Price: 3.20, TaxRate: 0.055, Category: "Boulangerie"},
		{ID: "7", Name: "Muffin Chocolat", Price: 3.50, TaxRate: 0.1, Category: "Pâtisseries"},
		{ID: "8", Name: "Thé Earl Grey", Price: 2.80, TaxRate: 0.1, Category: "Boissons"},
	}
}

// SeedCustomer creates a customer account. An empty ID is generated.
func (b *Backend) SeedCustomer(c users.Customer, password string) (*users.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createCustomer(c, password)
}

// SeedMerchant creates a merchant account. An empty ID is generated.
func (b *Backend) SeedMerchant(m users.Merchant, password string) (*users.Merchant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createMerchant(m, password)
}

func (b *Backend) createCustomer(c users.Customer, password string) (*users.Customer, error) {
	if b.emailTaken(c.Email) {
		return nil, errors.Errorf("email %s already registered", c.Email)
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = NowTimeFunc().UTC()
	}
	b.customers[c.ID] = &customerAccount{profile: c, passwordHash: hash}
	out := c
	return &out, nil
}

func (b *Backend) createMerchant(m users.Merchant, password string) (*users.Merchant, error) {
	if b.emailTaken(m.Email) {
		return nil, errors.Errorf("email %s already registered", m.Email)
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = NowTimeFunc().UTC()
	}
	b.merchants[m.ID] = &merchantAccount{profile: m, passwordHash: hash}
	out := m
	return &out, nil
}

func (b *Backend) emailTaken(email string) bool {
	email = strings.ToLower(email)
	for _, c := range b.customers {
		if strings.ToLower(c.profile.Email) == email {
			return true
		}
	}
	for _, m := range b.merchants {
		if strings.ToLower(m.profile.Email) == email {
			return true
		}
	}
	return false
}

// IssueToken mints a credential for subject with the given role claim, whether or not
// the account exists.
func (b *Backend) IssueToken(subject string, role users.Role) (string, error) {
	return b.signer.issue(subject, role)
}

// Revoke invalidates a credential; subsequent authenticated calls with it fail with 401.
func (b *Backend) Revoke(token string) {
	claims, err := b.signer.parse(token)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[claims.ID] = struct{}{}
}

// SetProfileDelay slows down both profile endpoints.
func (b *Backend) SetProfileDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profileDelay = d
}

// FailNext makes the next request matching route (a mux pattern such as
// "PUT /api/v1/sessions/{id}") answer with status and {"msg": message}.
func (b *Backend) FailNext(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], failure{status: status, message: message})
}

// Hits returns how many requests reached route.
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// OpenSession registers a pending hand-off session as a terminal would.
func (b *Backend) OpenSession() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.sessions[id] = &HandoffSession{ID: id, State: HandoffPending}
	return id
}

// ExpireSession moves a hand-off session to expired.
func (b *Backend) ExpireSession(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[id]; ok {
		s.State = HandoffExpired
	}
}

// Session returns a copy of a hand-off session.
func (b *Backend) Session(id string) (HandoffSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return HandoffSession{}, false
	}
	return *s, true
}

// ResetTokenFor returns the reset token mailed to email by the last forgot-password call.
func (b *Backend) ResetTokenFor(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok, e := range b.resetTokens {
		if strings.EqualFold(e, email) {
			return tok, true
		}
	}
	return "", false
}

// AddTransaction records a payment for a customer, newest first.
func (b *Backend) AddTransaction(customerID string, tx backend.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.customers[customerID]
	if !ok {
		return
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	acc.transactions = append([]backend.Transaction{tx}, acc.transactions...)
}

func (b *Backend) SetPalmStatus(customerID string, status backend.PalmStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.customers[customerID]; ok {
		acc.palm = status
	}
}

func (b *Backend) AddCard(customerID string, card backend.Card) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.customers[customerID]; ok {
		if card.ID == "" {
			card.ID = uuid.NewString()
		}
		acc.cards = append(acc.cards, card)
	}
}

// Customer returns a copy of a customer profile.
func (b *Backend) Customer(id string) (users.Customer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.customers[id]
	if !ok {
		return users.Customer{}, false
	}
	return acc.profile, true
}

func (b *Backend) delay(ctx context.Context) {
	b.mu.Lock()
	d := b.profileDelay
	b.mu.Unlock()
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Merchant returns a copy of a merchant profile.
func (b *Backend) Merchant(id string) (users.Merchant, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.merchants[id]
	if !ok {
		return users.Merchant{}, false
	}
	return acc.profile, true
}

// Products returns a copy of the catalog.
func (b *Backend) Products() []pos.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]pos.Product, len(b.products))
	copy(out, b.products)
	return out
}

// Terminals returns a copy of a merchant's terminals.
func (b *Backend) Terminals(merchantID string) []backend.Terminal {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.merchants[merchantID]
	if !ok {
		return nil
	}
	out := make([]backend.Terminal, len(acc.terminals))
	copy(out, acc.terminals)
	return out
}

// AddPayment records a payment received by a merchant, newest first. Completed
// payments add to the pending balance.
func (b *Backend) AddPayment(merchantID string, p backend.Payment) backend.Payment {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.merchants[merchantID]
	if !ok {
		return p
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = NowTimeFunc().UTC()
	}
	acc.payments = append([]backend.Payment{p}, acc.payments...)
	if p.Status == "completed" {
		acc.pendingBalance += p.Amount
	}
	return p
}

func (b *Backend) AddPayout(merchantID string, p backend.Payout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.merchants[merchantID]; ok {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		acc.payouts = append(acc.payouts, p)
	}
}

// SupportMessages returns the contact requests received so far.
func (b *Backend) SupportMessages() []SupportMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SupportMessage, len(b.support))
	copy(out, b.support)
	return out
}
