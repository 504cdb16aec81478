package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenty/portal/guard"
)

func (s *Server) initRoutes() {
	public := s.RequireAccess(guard.Public)
	customer := s.RequireAccess(guard.Customer)
	merchant := s.RequireAccess(guard.Merchant)

	// Landing
	s.RegisterRouteHandler("GET "+RouteHome+"{$}", ChainMiddleware(s.LandingHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, public)...))

	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordGetHandler(), s.HTMLMiddleWare(public)...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPostHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordGetHandler(), s.HTMLMiddleWare(public)...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPostHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))

	// Terminal hand-off. Enter makes its own access decision.
	s.RegisterRouteHandler("GET "+RouteHandoff, ChainMiddleware(s.HandoffGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteHandoff, ChainMiddleware(s.HandoffPostHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))

	// Customer
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, customer)...))
	s.RegisterRouteHandler("GET "+RoutePalm, ChainMiddleware(s.PalmHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, customer)...))
	s.RegisterRouteHandler("GET "+RouteCards, ChainMiddleware(s.CardsHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, customer)...))
	s.RegisterRouteHandler("GET "+RouteHistory, ChainMiddleware(s.HistoryHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, customer)...))
	s.RegisterRouteHandler("GET "+RouteSettings, ChainMiddleware(s.SettingsGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, customer)...))
	s.RegisterRouteHandler("POST "+RouteSettings, ChainMiddleware(s.SettingsPostHandler(), s.HTMLMiddleWare(customer)...))
	s.RegisterRouteHandler("POST "+RouteSettingsDelete, ChainMiddleware(s.DeleteAccountHandler(), s.HTMLMiddleWare(customer)...))
	s.RegisterRouteHandler("GET "+RouteSupport, ChainMiddleware(s.SupportGetHandler(RouteSupport), s.HTMLMiddleWare(customer)...))
	s.RegisterRouteHandler("POST "+RouteSupport, ChainMiddleware(s.SupportPostHandler(RouteSupport), s.HTMLMiddleWare(customer)...))

	// Merchant
	s.RegisterRouteHandler("GET "+RouteMerchantDashboard, ChainMiddleware(s.MerchantDashboardHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantPOS, ChainMiddleware(s.POSHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantPOS, ChainMiddleware(s.POSHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantProducts, ChainMiddleware(s.ProductsHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantProducts, ChainMiddleware(s.ProductSaveHandler(), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantProductDelete, ChainMiddleware(s.ProductDeleteHandler(), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantTerminals, ChainMiddleware(s.TerminalsHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantTerminals, ChainMiddleware(s.TerminalCreateHandler(), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantPayments, ChainMiddleware(s.PaymentsHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantReceipts, ChainMiddleware(s.ReceiptsHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantReceipt, ChainMiddleware(s.ReceiptDownloadHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantFinances, ChainMiddleware(s.FinancesHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantFinances, ChainMiddleware(s.FinancesIBANHandler(), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantSettings, ChainMiddleware(s.MerchantSettingsGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware, merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantSettings, ChainMiddleware(s.MerchantSettingsPostHandler(), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("GET "+RouteMerchantSupport, ChainMiddleware(s.SupportGetHandler(RouteMerchantSupport), s.HTMLMiddleWare(merchant)...))
	s.RegisterRouteHandler("POST "+RouteMerchantSupport, ChainMiddleware(s.SupportPostHandler(RouteMerchantSupport), s.HTMLMiddleWare(merchant)...))
	// The payment API integration guide is not published yet
	s.RegisterRouteHandler("GET "+RouteMerchantIntegration, ChainMiddleware(s.PlaceholderHandler("Intégration", "La documentation de l'API de paiement sera bientôt disponible."), s.HTMLMiddleWare(merchant)...))

	// API / operational
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware(s.DeviceMiddleware)...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))

	// Anything else goes back to the landing page
	s.RegisterRouteHandler(RouteHome, ChainMiddleware(s.UnmatchedHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
}
