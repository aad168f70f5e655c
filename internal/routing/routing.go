package routing

import (
	"net/http"

	"bonlog/internal/handlers"
	"bonlog/internal/middleware"
	"bonlog/internal/seclog"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger
	Events   *seclog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Create CrossOriginProtection for CSRF protection on mutating routes
	cop := http.NewCrossOriginProtection()
	protect := func(fn http.HandlerFunc) http.Handler {
		return cop.Handler(fn)
	}

	// Operational endpoints
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Account lifecycle. Login and register are origin-checked even though
	// they are pre-auth; the session cookie makes logout CSRF-relevant.
	mux.Handle("POST /auth/register", protect(h.HandleRegister))
	mux.Handle("POST /auth/login", protect(h.HandleLogin))
	mux.Handle("POST /auth/logout", protect(h.HandleLogout))
	mux.HandleFunc("GET /auth/me", h.HandleMe)

	// Content creation and the home timeline
	mux.Handle("POST /posts", protect(h.HandleCreatePost))
	mux.Handle("POST /posts/{id}/comments", protect(h.HandleCreateComment))
	mux.Handle("POST /shops", protect(h.HandleCreateShop))
	mux.Handle("POST /shops/{id}/reviews", protect(h.HandleCreateReview))
	mux.Handle("POST /events", protect(h.HandleCreateEvent))
	mux.HandleFunc("GET /feed", h.HandleTimeline)

	// Follow graph
	mux.Handle("POST /users/{id}/follow", protect(h.HandleFollow))
	mux.Handle("DELETE /users/{id}/follow", protect(h.HandleUnfollow))

	// Scheduled posts
	mux.Handle("DELETE /scheduled-posts/{id}", protect(h.HandleCancelScheduledPost))
	mux.HandleFunc("POST /internal/scheduled-posts/publish", h.HandlePublishDue)

	// Reporting
	mux.Handle("POST /reports", protect(h.HandleCreateReport))

	// Admin console
	mux.HandleFunc("GET /admin/hidden", h.HandleListHidden)
	mux.Handle("POST /admin/hidden/{type}/{id}/restore", protect(h.HandleRestore))
	mux.Handle("DELETE /admin/hidden/{type}/{id}", protect(h.HandlePurge))
	mux.HandleFunc("GET /admin/notifications", h.HandleListNotifications)
	mux.Handle("POST /admin/notifications/{id}/read", protect(h.HandleMarkNotificationRead))
	mux.HandleFunc("GET /admin/log", h.HandleAdminLog)
	mux.Handle("POST /admin/users/{id}/suspend", protect(h.HandleSuspendUser))
	mux.Handle("POST /admin/users/{id}/grant", protect(h.HandleGrantAdmin))
	mux.Handle("DELETE /admin/users/{id}/grant", protect(h.HandleRevokeAdmin))
	mux.HandleFunc("GET /admin/stats", h.HandleAdminStats)

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Apply rate limiting
	rateLimitConfig := middleware.NewDefaultRateLimitConfig()
	rateLimitConfig.Events = cfg.Events
	handler = middleware.RateLimitMiddleware(rateLimitConfig)(handler)

	// 3. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 4. Apply logging middleware
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	// 5. Trace spans (outermost - wraps everything). No-op until a tracer
	// provider is registered.
	handler = otelhttp.NewHandler(handler, "bonlog.http")

	return handler
}
