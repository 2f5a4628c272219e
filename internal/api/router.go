package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/seremi5/expense-server/internal/api/handlers"
	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/auth"
	"github.com/seremi5/expense-server/internal/config"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/domain/settings"
	"github.com/seremi5/expense-server/internal/metrics"
	"github.com/seremi5/expense-server/internal/ocr"
)

// Deps carries the wired services the router exposes over HTTP.
type Deps struct {
	Config   config.Config
	Logger   zerolog.Logger
	Pool     *pgxpool.Pool
	JWT      *auth.JWTManager
	Expenses *expenses.Service
	Admin    *expenses.AdminService
	Profiles *profiles.Service
	Settings *settings.Service
	Trail    *audit.Recorder
	OCR      *ocr.Client
	River    *river.Client[pgx.Tx]
	Version  string
	Commit   string
}

// NewRouter assembles the full HTTP surface: public auth endpoints, the
// authenticated expense and profile API, the admin review surface, and
// the operational endpoints (health, metrics).
func NewRouter(deps Deps) http.Handler {
	env := deps.Config.Environment

	authHandler := handlers.NewAuthHandler(deps.Profiles, deps.JWT, env)
	expensesHandler := handlers.NewExpensesHandler(deps.Expenses, env)
	adminHandler := handlers.NewAdminExpensesHandler(deps.Admin, env)
	auditHandler := handlers.NewAuditHandler(deps.Trail, env)
	profilesHandler := handlers.NewProfilesHandler(deps.Profiles, env)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, env)
	ocrHandler := handlers.NewOCRHandler(deps.OCR, env)
	healthChecker := handlers.NewHealthChecker(deps.Pool, deps.River, deps.Version, deps.Commit)

	requireAuth := middleware.BearerAuth(deps.JWT, env)
	requireAdmin := middleware.RequireAdmin(env)
	// One shared limiter store; the tier must be in context before the
	// limiter runs, so it is applied per route after the tier wrapper.
	limit := middleware.RateLimit(deps.Config.RateLimit)
	userTier := middleware.WithRateLimitTierHandler(middleware.TierUser)
	adminTier := middleware.WithRateLimitTierHandler(middleware.TierAdmin)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)
	jsonBody := middleware.JSONRequestSize()
	uploadBody := middleware.UploadRequestSize()

	user := func(h http.HandlerFunc) http.Handler {
		return userTier(limit(requireAuth(jsonBody(h))))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return adminTier(limit(requireAuth(requireAdmin(jsonBody(h)))))
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", healthChecker.Health())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(limit(jsonBody(http.HandlerFunc(authHandler.Register)))),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(limit(jsonBody(http.HandlerFunc(authHandler.Login)))),
	}))
	mux.Handle("/api/v1/auth/me", methodMux(map[string]http.Handler{
		http.MethodGet: user(authHandler.Me),
	}))

	mux.Handle("/api/v1/expenses", methodMux(map[string]http.Handler{
		http.MethodGet:  user(expensesHandler.List),
		http.MethodPost: user(expensesHandler.Create),
	}))
	mux.Handle("/api/v1/expenses/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    user(expensesHandler.Get),
		http.MethodPut:    user(expensesHandler.Update),
		http.MethodDelete: user(expensesHandler.Delete),
	}))

	mux.Handle("/api/v1/ocr/extract", methodMux(map[string]http.Handler{
		http.MethodPost: userTier(limit(requireAuth(uploadBody(http.HandlerFunc(ocrHandler.Extract))))),
	}))

	mux.Handle("/api/v1/profiles/me", methodMux(map[string]http.Handler{
		http.MethodGet: user(profilesHandler.Get),
		http.MethodPut: user(profilesHandler.Update),
	}))
	mux.Handle("/api/v1/profiles/me/bank-details", methodMux(map[string]http.Handler{
		http.MethodPut: user(profilesHandler.UpdateBankDetails),
	}))

	mux.Handle("/api/v1/settings/events", methodMux(map[string]http.Handler{
		http.MethodGet: user(settingsHandler.Events),
	}))
	mux.Handle("/api/v1/settings/categories", methodMux(map[string]http.Handler{
		http.MethodGet: user(settingsHandler.Categories),
	}))

	mux.Handle("/api/v1/admin/expenses", methodMux(map[string]http.Handler{
		http.MethodGet: admin(adminHandler.List),
	}))
	mux.Handle("/api/v1/admin/expenses/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: admin(adminHandler.Get),
	}))
	mux.Handle("/api/v1/admin/expenses/{id}/decision", methodMux(map[string]http.Handler{
		http.MethodPost: admin(adminHandler.Decide),
	}))
	mux.Handle("/api/v1/admin/expenses/{id}/pay", methodMux(map[string]http.Handler{
		http.MethodPost: admin(adminHandler.MarkPaid),
	}))

	mux.Handle("/api/v1/admin/audit-logs", methodMux(map[string]http.Handler{
		http.MethodGet: admin(auditHandler.List),
	}))

	mux.Handle("/api/v1/admin/profiles", methodMux(map[string]http.Handler{
		http.MethodGet: admin(profilesHandler.AdminList),
	}))

	mux.Handle("/api/v1/admin/settings/events", methodMux(map[string]http.Handler{
		http.MethodGet:  admin(settingsHandler.Events),
		http.MethodPost: admin(settingsHandler.CreateEvent),
	}))
	mux.Handle("/api/v1/admin/settings/events/{id}", methodMux(map[string]http.Handler{
		http.MethodPatch: admin(settingsHandler.UpdateEvent),
	}))
	mux.Handle("/api/v1/admin/settings/events/{id}/active", methodMux(map[string]http.Handler{
		http.MethodPatch: admin(settingsHandler.SetEventActive),
	}))
	mux.Handle("/api/v1/admin/settings/categories", methodMux(map[string]http.Handler{
		http.MethodGet:  admin(settingsHandler.Categories),
		http.MethodPost: admin(settingsHandler.CreateCategory),
	}))
	mux.Handle("/api/v1/admin/settings/categories/{id}", methodMux(map[string]http.Handler{
		http.MethodPatch: admin(settingsHandler.UpdateCategory),
	}))
	mux.Handle("/api/v1/admin/settings/categories/{id}/active", methodMux(map[string]http.Handler{
		http.MethodPatch: admin(settingsHandler.SetCategoryActive),
	}))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
