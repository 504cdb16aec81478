package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/sessions"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

// Pages, each rendered inside layout.html
const (
	pageLanding           = "landing.html"
	pageLoading           = "loading.html"
	pageForgotPassword    = "forgot_password.html"
	pageResetPassword     = "reset_password.html"
	pageDashboard         = "dashboard.html"
	pagePalm              = "palm.html"
	pageCards             = "cards.html"
	pageHistory           = "history.html"
	pageSettings          = "settings.html"
	pagePlaceholder       = "placeholder.html"
	pageMerchantDashboard = "merchant_dashboard.html"
	pagePOS               = "pos.html"
	pageHandoff           = "handoff.html"
	pageSupport           = "support.html"
	pageProducts          = "products.html"
	pageTerminals         = "terminals.html"
	pagePayments          = "payments.html"
	pageReceipts          = "receipts.html"
	pageFinances          = "finances.html"
	pageMerchantSettings  = "merchant_settings.html"
)

var pageFiles = []string{
	pageLanding, pageLoading, pageForgotPassword, pageResetPassword, pageDashboard,
	pagePalm, pageCards, pageHistory, pageSettings, pagePlaceholder,
	pageMerchantDashboard, pagePOS, pageHandoff, pageSupport, pageProducts,
	pageTerminals, pagePayments, pageReceipts, pageFinances, pageMerchantSettings,
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
	"day": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "Aucune"
		}
		return t.Local().Format("02/01/2006")
	},
	"percent": func(rate float64) string {
		return strconv.FormatFloat(rate*100, 'f', -1, 64) + " %"
	},
	"status": statusLabel,
}

var statusLabels = map[string]string{
	"completed":   "Réussi",
	"pending":     "En attente",
	"failed":      "Échoué",
	"paid":        "Payé",
	"active":      "Actif",
	"inactive":    "Inactif",
	"maintenance": "Maintenance",
}

// statusLabel translates a backend status for display; unknown ones pass through.
func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// formatMoney renders an amount in euros the French way, e.g. "12,50 €".
func formatMoney(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f €", v), ".", ",", 1)
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	return template.New("layout.html").Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "layout.html", name)
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// PageData is what every page template receives.
type PageData struct {
	AppName string
	Title   string
	Session sessions.Session
	Error   string
	Notice  string
	Content any
}

func (s *Server) pageData(r *http.Request, title string, content any) PageData {
	data := PageData{
		AppName: s.config.GetAppName(),
		Title:   title,
		Error:   r.URL.Query().Get("error"),
		Notice:  r.URL.Query().Get("notice"),
		Content: content,
	}
	if store := storeFrom(r.Context()); store != nil {
		data.Session = store.Snapshot()
	}
	return data
}

// render executes a page into a buffer first so a template error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		logError(r.Method, r.URL.Path, "unknown page "+page)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
