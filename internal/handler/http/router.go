package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/config"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/service"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/health"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/middleware"
)

// RouterConfig carries the HTTP-facing settings of the router.
type RouterConfig struct {
	CORSOrigins   []string
	AuthRateRPS   float64
	AuthRateBurst int
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	authService *service.AuthService,
	clientService *service.ClientService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(config.ServiceName))
	r.Use(middleware.Tracing(config.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	requireAuth := middleware.Auth(TokenValidator(authService))
	authHandler := NewAuthHandler(authService, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Public endpoints
		r.Group(func(r chi.Router) {
			if cfg.AuthRateRPS > 0 {
				r.Use(middleware.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst, logger))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.Me)
			r.Post("/logout-all", authHandler.LogoutAll)
			r.Get("/sessions", authHandler.Sessions)
		})
	})

	clientHandler := NewClientHandler(clientService, logger)
	r.Route("/clients", func(r chi.Router) {
		r.Use(middleware.RequireJSON)
		r.Use(requireAuth)

		r.Get("/", clientHandler.List)
		r.Post("/", clientHandler.Create)
		r.Get("/{id}", clientHandler.Get)
		r.Put("/{id}", clientHandler.Update)
		r.Delete("/{id}", clientHandler.Archive)
	})

	return r
}

// TokenValidator bridges the auth middleware to AuthService.Authenticate.
func TokenValidator(svc *service.AuthService) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		identity, err := svc.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: identity.ID, Email: identity.Email}, nil
	}
}
