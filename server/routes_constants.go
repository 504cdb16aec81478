package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public Routes
	RouteHome           = "/"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteHandoff        = "/enregistrement"

	// Auth Routes - form posts
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthLogout   = "/auth/logout"

	// Customer Routes
	RouteDashboard      = "/dashboard"
	RoutePalm           = "/palm"
	RouteCards          = "/cards"
	RouteHistory        = "/history"
	RouteSettings       = "/settings"
	RouteSettingsDelete = "/settings/delete"
	RouteSupport        = "/support"

	// Merchant Routes
	RouteMerchantDashboard     = "/merchant/dashboard"
	RouteMerchantPOS           = "/merchant/pos"
	RouteMerchantProducts      = "/merchant/products"
	RouteMerchantProductDelete = "/merchant/products/{id}/delete"
	RouteMerchantPayments      = "/merchant/payments"
	RouteMerchantTerminals     = "/merchant/terminals"
	RouteMerchantReceipts      = "/merchant/receipts"
	RouteMerchantReceipt       = "/merchant/receipts/{id}"
	RouteMerchantFinances      = "/merchant/finances"
	RouteMerchantIntegration   = "/merchant/integration"
	RouteMerchantSettings      = "/merchant/settings"
	RouteMerchantSupport       = "/merchant/support"

	// API / operational Routes
	RouteAPISession = "/api/session"
	RouteHealth     = "/healthz"
	RouteMetrics    = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
