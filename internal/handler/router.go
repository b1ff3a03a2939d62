package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmalink/gateway/internal/config"
	"github.com/pharmalink/gateway/internal/guard"
	gwmiddleware "github.com/pharmalink/gateway/internal/middleware"
	"github.com/pharmalink/gateway/internal/proxy"
	"github.com/pharmalink/gateway/pkg/health"
	pkgmiddleware "github.com/pharmalink/gateway/pkg/middleware"
)

// NewRouter creates a chi router with global middleware, health and metrics
// endpoints, the backend proxy, the action endpoints, and the guarded portal
// shell.
func NewRouter(
	cfg *config.Config,
	fwd *proxy.Forwarder,
	acts *Actions,
	g *guard.Guard,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack (applied in order).
	r.Use(pkgmiddleware.CORS(pkgmiddleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		ExposedHeaders:   []string{"X-Correlation-ID"},
		MaxAge:           cfg.CORSMaxAge,
		AllowCredentials: true,
		Environment:      cfg.Environment,
	}))
	r.Use(gwmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	r.Use(pkgmiddleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.UpstreamTimeout + 5*time.Second))
	r.Use(pkgmiddleware.RequestLogging(logger))
	r.Use(pkgmiddleware.PrometheusMetrics("portal-gateway"))
	r.Use(pkgmiddleware.Tracing("portal-gateway"))
	r.Use(pkgmiddleware.RequestLogger(logger))

	// Health check endpoints (no auth required).
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// Metrics endpoint with IP allowlist protection.
	metricsHandler := pkgmiddleware.IPAllowlist(cfg.MetricsAllowedCIDRs, logger)(promhttp.Handler())
	r.Get("/metrics", metricsHandler.ServeHTTP)

	// Pprof debug endpoints with IP allowlist.
	pkgmiddleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	// Raw backend proxy. The bare path (no endpoint) still reaches the
	// forwarder so it can answer 404 instead of chi's default.
	r.Handle("/api/proxy", fwd.Handler())
	r.Handle("/api/proxy/*", fwd.Handler())

	// Action endpoints.
	r.Route("/api/actions", acts.Routes)

	// Portal shell behind the navigation guard. Disabled in API-only
	// deployments.
	if cfg.ShellDir != "" {
		r.Group(func(r chi.Router) {
			r.Use(g.Middleware)
			shell := NewShell(cfg.ShellDir)
			r.Get("/", shell.ServeHTTP)
			r.Get("/*", shell.ServeHTTP)
		})
	}

	return r
}
