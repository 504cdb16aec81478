package backendfake

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/users"
)

const dateLayout = "2006-01-02"

func (b *Backend) createProduct(w http.ResponseWriter, r *http.Request, _ *tokenClaims) {
	var p pos.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" || p.Price <= 0 {
		writeMsg(w, http.StatusBadRequest, "Name and a positive price are required")
		return
	}
	p.ID = uuid.NewString()

	b.mu.Lock()
	b.products = append(b.products, p)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) updateProduct(w http.ResponseWriter, r *http.Request, _ *tokenClaims) {
	var p pos.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" || p.Price <= 0 {
		writeMsg(w, http.StatusBadRequest, "Name and a positive price are required")
		return
	}
	p.ID = r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == p.ID {
			b.products[i] = p
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeMsg(w, http.StatusNotFound, "Product not found")
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request, _ *tokenClaims) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			writeMsg(w, http.StatusOK, "Product deleted")
			return
		}
	}
	writeMsg(w, http.StatusNotFound, "Product not found")
}

func (b *Backend) updateMerchant(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var update users.MerchantProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if update.IBAN != nil && len(*update.IBAN) < 14 {
		writeMsg(w, http.StatusBadRequest, "Invalid IBAN")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.merchants[claims.Subject]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Merchant not found")
		return
	}
	if update.CompanyName != nil {
		acc.profile.CompanyName = *update.CompanyName
	}
	if update.Phone != nil {
		acc.profile.Phone = *update.Phone
	}
	if update.Address != nil {
		acc.profile.Address = *update.Address
	}
	if update.IBAN != nil {
		acc.profile.IBAN = *update.IBAN
	}
	writeJSON(w, http.StatusOK, acc.profile)
}

// ownMerchant resolves the {id} path value, which must be the caller's own account.
func (b *Backend) ownMerchant(w http.ResponseWriter, r *http.Request, claims *tokenClaims) (*merchantAccount, bool) {
	id := r.PathValue("id")
	if id != claims.Subject {
		writeMsg(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	acc, ok := b.merchants[id]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Merchant not found")
		return nil, false
	}
	return acc, true
}

func (b *Backend) terminals(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownMerchant(w, r, claims)
	if !ok {
		return
	}
	terminals := make([]backend.Terminal, len(acc.terminals))
	copy(terminals, acc.terminals)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "terminals": terminals})
}

func (b *Backend) createTerminal(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var form users.TerminalForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || strings.TrimSpace(form.Name) == "" {
		writeMsg(w, http.StatusBadRequest, "Terminal name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownMerchant(w, r, claims)
	if !ok {
		return
	}
	terminal := backend.Terminal{
		ID:          uuid.NewString(),
		TerminalUID: terminalUID(),
		Name:        form.Name,
		Location:    form.Location,
		Status:      "inactive",
	}
	acc.terminals = append([]backend.Terminal{terminal}, acc.terminals...)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "terminal": terminal})
}

func terminalUID() string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return "ZT-" + strings.ToUpper(hex.EncodeToString(buf[:]))
}

// merchantTransactions honours ?start= and ?end= (inclusive days).
func (b *Backend) merchantTransactions(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var start, end time.Time
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeMsg(w, http.StatusBadRequest, "Invalid start date")
			return
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeMsg(w, http.StatusBadRequest, "Invalid end date")
			return
		}
		end = t.Add(24 * time.Hour)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownMerchant(w, r, claims)
	if !ok {
		return
	}
	payments := make([]backend.Payment, 0, len(acc.payments))
	for _, p := range acc.payments {
		if !start.IsZero() && p.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && !p.CreatedAt.Before(end) {
			continue
		}
		payments = append(payments, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": payments, "count": len(payments)})
}

func (b *Backend) finances(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.ownMerchant(w, r, claims)
	if !ok {
		return
	}
	payouts := make([]backend.Payout, len(acc.payouts))
	copy(payouts, acc.payouts)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"pendingBalance": acc.pendingBalance,
		"iban":           acc.profile.IBAN,
		"payouts":        payouts,
	})
}

// receipt serves a minimal PDF for one of the caller's payments.
func (b *Backend) receipt(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	id := r.PathValue("id")

	b.mu.Lock()
	acc, ok := b.merchants[claims.Subject]
	var payment *backend.Payment
	if ok {
		for i := range acc.payments {
			if acc.payments[i].ID == id {
				p := acc.payments[i]
				payment = &p
			}
		}
	}
	b.mu.Unlock()

	if payment == nil {
		writeMsg(w, http.StatusNotFound, "Transaction not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% Zenty receipt %s\n%% %s %.2f %s\n%%%%EOF\n",
		payment.ID, payment.CreatedAt.Format(time.RFC3339), payment.Amount, payment.Currency)
}

func (b *Backend) contactSupport(w http.ResponseWriter, r *http.Request, claims *tokenClaims) {
	var form users.SupportForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form.Subject == "" || form.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Subject and message are required"})
		return
	}

	b.mu.Lock()
	b.support = append(b.support, SupportMessage{From: claims.Subject, Subject: form.Subject, Message: form.Message})
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Message sent"})
}
