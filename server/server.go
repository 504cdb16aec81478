package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/internal/config"
	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

// API is the part of the backend contract the pages call directly. Session
// mutations go through the device's sessions.Store instead.
type API interface {
	BindSession(ctx context.Context, token, sessionID, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
	Stats(ctx context.Context, token, userID string) (*backend.Stats, error)
	Transactions(ctx context.Context, token, userID string) ([]backend.Transaction, error)
	PalmStatus(ctx context.Context, token, userID string) (*backend.PalmStatus, error)
	Cards(ctx context.Context, token, userID string) ([]backend.Card, error)
	Products(ctx context.Context, token string) ([]pos.Product, error)

	// Merchant administration
	CreateProduct(ctx context.Context, token string, p pos.Product) (*pos.Product, error)
	UpdateProduct(ctx context.Context, token string, p pos.Product) (*pos.Product, error)
	DeleteProduct(ctx context.Context, token, productID string) error
	Terminals(ctx context.Context, token, merchantID string) ([]backend.Terminal, error)
	CreateTerminal(ctx context.Context, token, merchantID string, form users.TerminalForm) (*backend.Terminal, error)
	MerchantTransactions(ctx context.Context, token, merchantID string, filter backend.PaymentFilter) ([]backend.Payment, error)
	Finances(ctx context.Context, token, merchantID string) (*backend.Finances, error)
	Receipt(ctx context.Context, token, transactionID string) (*backend.Receipt, error)
	ContactSupport(ctx context.Context, token string, form users.SupportForm) error
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	api         API
	sessions    *sessions.Registry
	pages       map[string]*template.Template
	authLimiter func(http.Handler) http.Handler
}

func New(cfg config.Config, registry *sessions.Registry, api API) (*Server, error) {
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		api:      api,
		sessions: registry,
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.pages = pages

	if cfg.GetEnableRateLimiting() {
		requests, window := cfg.GetAuthRateLimit()
		s.authLimiter = httprate.LimitByIP(requests, window)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
