package server_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/server"
	"github.com/zenty/portal/users"
)

func TestMerchantProducts_CRUD(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	resp, body := f.get(t, server.RouteMerchantProducts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Café Expresso")
	require.Contains(t, body, `name="tva" inputmode="decimal" value="20"`)

	resp, body = f.post(t, server.RouteMerchantProducts, url.Values{
		"name": {"Flan"}, "price": {"abc"}, "tva": {"5,5"}, "category": {"Pâtisseries"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, "Le prix doit être un montant positif")
	require.Contains(t, body, `value="Flan"`)
	require.Zero(t, f.fake.Hits("POST /api/v1/products"))

	resp, _ = f.post(t, server.RouteMerchantProducts, url.Values{
		"name": {"Flan"}, "price": {"3,20"}, "tva": {"5,5"}, "category": {"Pâtisseries"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantProducts+"?notice="))

	var flanID string
	for _, p := range f.fake.Products() {
		if p.Name == "Flan" {
			flanID = p.ID
			require.Equal(t, 3.2, p.Price)
			require.Equal(t, 0.055, p.TaxRate)
		}
	}
	require.NotEmpty(t, flanID)

	_, body = f.get(t, server.RouteMerchantProducts+"?edit="+flanID)
	require.Contains(t, body, `name="id" value="`+flanID+`"`)
	require.Contains(t, body, `value="3.20"`)

	resp, _ = f.post(t, server.RouteMerchantProducts, url.Values{
		"id": {flanID}, "name": {"Flan vanille"}, "price": {"3.50"}, "tva": {"5.5"}, "category": {"Pâtisseries"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, 1, f.fake.Hits("PUT /api/v1/products/{id}"))

	resp, _ = f.post(t, "/merchant/products/"+flanID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	for _, p := range f.fake.Products() {
		require.NotEqual(t, flanID, p.ID)
	}

	resp, _ = f.post(t, "/merchant/products/"+flanID+"/delete", nil)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantProducts+"?error="))
}

func TestMerchantTerminals(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	resp, body := f.post(t, server.RouteMerchantTerminals, url.Values{"name": {""}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, "Nom obligatoire")
	require.Zero(t, f.fake.Hits("POST /api/v1/merchants/{id}/terminals"))

	resp, _ = f.post(t, server.RouteMerchantTerminals, url.Values{"name": {"Caisse 1"}, "location": {"Comptoir"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantTerminals+"?notice="))

	terminals := f.fake.Terminals(f.merchant.ID)
	require.Len(t, terminals, 1)

	_, body = f.get(t, server.RouteMerchantTerminals)
	require.Contains(t, body, "Caisse 1")
	require.Contains(t, body, terminals[0].TerminalUID)
	require.Contains(t, body, "Inactif")
}

func TestMerchantPayments_Filter(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.fake.AddPayment(f.merchant.ID, backend.Payment{
		Amount: 12.5, Status: "completed", User: &backend.Payer{FirstName: "Alice", LastName: "Martin"},
	})
	f.fake.AddPayment(f.merchant.ID, backend.Payment{
		Amount: 4.2, Status: "completed", User: &backend.Payer{FirstName: "Bob", LastName: "Durand"},
		Terminal: &backend.TerminalRef{Name: "Caisse 2", TerminalUID: "ZT-0002"},
	})
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	_, body := f.get(t, server.RouteMerchantPayments)
	require.Contains(t, body, `<strong class="received">16,70 €</strong>`)
	require.Contains(t, body, "2 sur 2 paiement(s)")

	_, body = f.get(t, server.RouteMerchantPayments+"?q=alice")
	require.Contains(t, body, "Alice Martin")
	require.NotContains(t, body, "Bob Durand")

	_, body = f.get(t, server.RouteMerchantPayments+"?q=zt-0002")
	require.Contains(t, body, "Bob Durand")
	require.NotContains(t, body, "Alice Martin")
}

func TestFilterPayments(t *testing.T) {
	payments := []backend.Payment{
		{Amount: 12.5, User: &backend.Payer{FirstName: "Alice", LastName: "Martin"}},
		{Amount: 7, Terminal: &backend.TerminalRef{Name: "Terrasse"}},
	}
	require.Len(t, server.FilterPayments(payments, ""), 2)
	require.Len(t, server.FilterPayments(payments, "MARTIN"), 1)
	require.Len(t, server.FilterPayments(payments, "terrasse"), 1)
	require.Len(t, server.FilterPayments(payments, "12.5"), 1)
	require.Empty(t, server.FilterPayments(payments, "carrefour"))
}

func TestMerchantReceipts(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := f.fake.AddPayment(f.merchant.ID, backend.Payment{Amount: 9.9, Status: "completed", CreatedAt: day.AddDate(0, 0, -10)})
	recent := f.fake.AddPayment(f.merchant.ID, backend.Payment{Amount: 4.2, Status: "completed", CreatedAt: day})
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	_, body := f.get(t, server.RouteMerchantReceipts+"?start=2026-03-09&end=2026-03-10")
	require.Contains(t, body, "/merchant/receipts/"+recent.ID)
	require.NotContains(t, body, "/merchant/receipts/"+old.ID)

	resp, body := f.get(t, "/merchant/receipts/"+recent.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="receipt-`+recent.ID+`.pdf"`, resp.Header.Get("Content-Disposition"))
	require.True(t, strings.HasPrefix(body, "%PDF-"))

	resp, _ = f.get(t, "/merchant/receipts/unknown")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteMerchantReceipts, location.Path)
	require.Equal(t, "Reçu introuvable", location.Query().Get("error"))

	hits := f.fake.Hits("GET /api/v1/merchants/{id}/transactions")
	_, body = f.get(t, server.RouteMerchantReceipts+"?start=2026-03-10&end=2026-03-01")
	require.Contains(t, body, "Période invalide")
	require.Equal(t, hits, f.fake.Hits("GET /api/v1/merchants/{id}/transactions"))
}

func TestMerchantFinances_UpdateIBAN(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.fake.AddPayment(f.merchant.ID, backend.Payment{Amount: 20, Status: "completed"})
	f.fake.AddPayout(f.merchant.ID, backend.Payout{Amount: 150, Status: "paid", IBAN: "FR7610000000000000000000000"})
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	resp, body := f.get(t, server.RouteMerchantFinances)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `<p class="balance">20,00 €</p>`)
	require.Contains(t, body, "150,00 €")
	require.Contains(t, body, "Payé")

	resp, body = f.post(t, server.RouteMerchantFinances, url.Values{"iban": {"FR76"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, "IBAN invalide")
	require.Zero(t, f.fake.Hits("PUT /api/v1/merchants/me"))

	resp, _ = f.post(t, server.RouteMerchantFinances, url.Values{"iban": {"fr76 3000 6000 0112 3456 7890 189"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantFinances+"?notice="))

	const iban = "FR7630006000011234567890189"
	stored, ok := f.fake.Merchant(f.merchant.ID)
	require.True(t, ok)
	require.Equal(t, iban, stored.IBAN)
	require.Equal(t, iban, f.registry.Get(f.device(t)).Snapshot().Merchant.IBAN)

	_, body = f.get(t, server.RouteMerchantFinances)
	require.Contains(t, body, `name="iban" value="`+iban+`"`)
}

func TestMerchantSettings(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	resp, _ := f.post(t, server.RouteMerchantSettings, url.Values{"companyName": {"Boulangerie Paulette"}, "phone": {""}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantSettings+"?notice="))

	stored, ok := f.fake.Merchant(f.merchant.ID)
	require.True(t, ok)
	require.Equal(t, "Boulangerie Paulette", stored.CompanyName)
	require.Equal(t, "0100000000", stored.Phone)

	_, body := f.get(t, server.RouteMerchantSettings)
	require.Contains(t, body, `value="Boulangerie Paulette"`)

	resp, _ = f.post(t, server.RouteMerchantSettings, url.Values{})
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantSettings+"?error="))

	resp, body = f.get(t, server.RouteMerchantIntegration)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "sera bientôt disponible")
}

func TestSupport_ContactForm(t *testing.T) {
	f := setupTestFixture(t, time.Second)
	f.login(t, "shop@example.com", users.RoleMerchant, "")

	resp, body := f.get(t, server.RouteMerchantSupport)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Comment ajouter un nouveau terminal de paiement ?")
	require.Contains(t, body, `action="/merchant/support"`)

	resp, body = f.post(t, server.RouteMerchantSupport, url.Values{"subject": {"Terminal"}, "message": {"court"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, "Minimum 10 caractères")

	resp, _ = f.post(t, server.RouteMerchantSupport, url.Values{"subject": {"Terminal"}, "message": {"Le terminal ne démarre plus."}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), server.RouteMerchantSupport+"?notice="))
	messages := f.fake.SupportMessages()
	require.Len(t, messages, 1)
	require.Equal(t, f.merchant.ID, messages[0].From)

	// Customers reach the same form from their own page
	_, _ = f.post(t, server.RouteAuthLogout, nil)
	f.login(t, "alice@example.com", users.RoleCustomer, "")
	_, body = f.get(t, server.RouteSupport)
	require.Contains(t, body, `action="/support"`)
	require.Contains(t, body, "Comment enregistrer ma paume ?")

	resp, _ = f.post(t, server.RouteSupport, url.Values{"subject": {"Carte"}, "message": {"Je souhaite changer de carte."}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Len(t, f.fake.SupportMessages(), 2)

	// A customer cannot reach the merchant pages
	resp, _ = f.post(t, server.RouteMerchantFinances, url.Values{"iban": {"FR7630006000011234567890189"}})
	require.Equal(t, server.RouteDashboard, resp.Header.Get("Location"))
	require.Zero(t, f.fake.Hits("PUT /api/v1/merchants/me"))
}
