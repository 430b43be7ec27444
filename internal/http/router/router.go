package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pmstore/pmstore-api/internal/health"
	"github.com/pmstore/pmstore-api/internal/http/handler"
	"github.com/pmstore/pmstore-api/internal/http/middleware"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/security"
)

type Dependencies struct {
	CSRFHandler    *handler.CSRFHandler
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	ProductHandler *handler.ProductHandler

	Sessions       middleware.SessionReader
	Users          middleware.UserLookup
	CSRFGuard      *security.CSRF
	CSRFCookieName string

	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
	ExposeInternals   bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

const maxBodyBytes = 1 << 20

func NewRouter(dep Dependencies) http.Handler {
	response.SetExposeInternals(dep.ExposeInternals)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, r, "ok", map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.OK(w, r, "ready", map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.OK(w, r, "ready", map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "dependencies are not ready", map[string]any{"checks": results})
	})

	globalLimiter := dep.GlobalRateLimiter
	if globalLimiter == nil {
		globalLimiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware()
	}
	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}

	routes := apiRoutes(dep, authLimiter)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(dep.Sessions))
		r.Use(globalLimiter)
		r.Use(middleware.CSRFMiddleware(dep.CSRFGuard, dep.CSRFCookieName, func(method, path string) bool {
			return routes.CSRFExempt(method, path)
		}))
		for _, rt := range routes {
			r.With(rt.Middleware...).Method(rt.Method, strings.TrimPrefix(rt.Pattern, "/api"), rt.Handler)
		}
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

// apiRoutes lists every /api endpoint with its guards. Patterns are
// absolute so the CSRF predicate can match on the raw request path.
func apiRoutes(dep Dependencies, authLimiter func(http.Handler) http.Handler) RouteTable {
	requireSession := middleware.RequireSession
	requireActive := middleware.RequireActiveUser(dep.Users)

	return RouteTable{
		{Method: http.MethodGet, Pattern: "/api/csrf-token", Handler: dep.CSRFHandler.Token},

		{Method: http.MethodPost, Pattern: "/api/users/register", Handler: dep.AuthHandler.Register, Middleware: mw(authLimiter)},
		{Method: http.MethodPost, Pattern: "/api/users/login", Handler: dep.AuthHandler.Login, Middleware: mw(authLimiter)},
		{Method: http.MethodPost, Pattern: "/api/users/logout", Handler: dep.AuthHandler.Logout},
		{Method: http.MethodGet, Pattern: "/api/users", Handler: dep.UserHandler.List, Middleware: mw(requireSession)},
		{Method: http.MethodGet, Pattern: "/api/users/me", Handler: dep.UserHandler.Me, Middleware: mw(requireActive)},

		{Method: http.MethodGet, Pattern: "/api/products", Handler: dep.ProductHandler.List},
		{Method: http.MethodPost, Pattern: "/api/products/create-products", Handler: dep.ProductHandler.Create, Middleware: mw(requireSession), CSRF: true},
		{Method: http.MethodPut, Pattern: "/api/products/update-product/{id}", Handler: dep.ProductHandler.Update, Middleware: mw(requireSession), CSRF: true},
		{Method: http.MethodDelete, Pattern: "/api/products/delete-product/{id}", Handler: dep.ProductHandler.Delete, Middleware: mw(requireSession), CSRF: true},
	}
}

func mw(m ...func(http.Handler) http.Handler) []func(http.Handler) http.Handler { return m }
