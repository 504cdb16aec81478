package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/pos"
)

type MerchantDashboardData struct {
	Products   int
	Categories []string
}

// POSData drives the terminal page. The cart travels in hidden qty_<id> fields.
type POSData struct {
	Catalog    []pos.Product // Filtered by Category
	Categories []string
	Category   string
	Lines      []pos.Line
	Totals     pos.Totals
}

func (s *Server) MerchantDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := storeFrom(r.Context()).Snapshot()
		products, err := s.api.Products(r.Context(), session.Credential)
		page := s.pageData(r, "Tableau de bord", MerchantDashboardData{
			Products:   len(products),
			Categories: pos.Categories(products),
		})
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("Merchant dashboard: failed to load catalog")
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pageMerchantDashboard, page)
	}
}

// POSHandler renders the terminal and applies the posted cart action (GET|POST /merchant/pos).
// Actions are "add:<id>", "decrement:<id>", "remove:<id>", "clear" and "pay".
func (s *Server) POSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := storeFrom(r.Context()).Snapshot()
		catalog, err := s.api.Products(r.Context(), session.Credential)
		if err != nil {
			if s.sessionRejected(w, r, err) {
				return
			}
			log.Err(err).Msg("POS: failed to load catalog")
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		cart := pos.FromQuantities(catalog, postedQuantities(r, catalog))
		notice := applyCartAction(cart, catalog, r.PostFormValue("action"))

		category := r.FormValue("category")
		page := s.pageData(r, "Caisse", POSData{
			Catalog:    inCategory(catalog, category),
			Categories: pos.Categories(catalog),
			Category:   category,
			Lines:      cart.Lines(),
			Totals:     cart.Totals(),
		})
		if notice != "" {
			page.Notice = notice
		}
		if err != nil {
			page.Error = backendErrorMessage(err)
		}
		s.render(w, r, http.StatusOK, pagePOS, page)
	}
}

func postedQuantities(r *http.Request, catalog []pos.Product) map[string]int {
	quantities := make(map[string]int)
	for _, p := range catalog {
		q, err := strconv.Atoi(r.PostFormValue("qty_" + p.ID))
		if err == nil && q > 0 {
			quantities[p.ID] = q
		}
	}
	return quantities
}

// applyCartAction mutates cart and returns a notice for the merchant, if any.
func applyCartAction(cart *pos.Cart, catalog []pos.Product, action string) string {
	verb, productID, _ := strings.Cut(action, ":")
	switch verb {
	case "add":
		for _, p := range catalog {
			if p.ID == productID {
				cart.Add(p)
			}
		}
	case "decrement":
		for _, l := range cart.Lines() {
			if l.Product.ID == productID {
				cart.SetQuantity(productID, l.Quantity-1)
			}
		}
	case "remove":
		cart.Remove(productID)
	case "clear":
		cart.Clear()
	case "pay":
		if cart.Empty() {
			return ""
		}
		total := cart.Totals().Total
		cart.Clear()
		return fmt.Sprintf("Paiement de %s envoyé au terminal", formatMoney(total))
	}
	return ""
}

func inCategory(catalog []pos.Product, category string) []pos.Product {
	if category == "" {
		return catalog
	}
	out := make([]pos.Product, 0, len(catalog))
	for _, p := range catalog {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
