package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shinker1002/seb40-main-019/internal/auth"
	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/service"
	"github.com/shinker1002/seb40-main-019/pkg/health"
	"github.com/shinker1002/seb40-main-019/pkg/middleware"
)

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	ServiceName   string
	CORS          middleware.CORSConfig
	MaxImageBytes int64
}

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(
	accounts *service.AccountService,
	reviews *service.ReviewService,
	tokens *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Bridges the token manager to the auth middleware.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Role: claims.Role}, nil
	}
	requireAuth := func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequestLogger(logger))
	}

	authHandler := NewAuthHandler(accounts, logger)
	accountHandler := NewAccountHandler(accounts, logger)
	reviewHandler := NewReviewHandler(reviews, logger, cfg.MaxImageBytes)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/test-accounts", authHandler.IssueTestAccount)

		r.Group(func(r chi.Router) {
			requireAuth(r)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", accountHandler.Signup)

		r.Group(func(r chi.Router) {
			requireAuth(r)
			r.Get("/me", accountHandler.GetMe)
			r.Delete("/me", accountHandler.DeleteMe)
			r.Get("/me/reviews", reviewHandler.ListMine)
			r.Get("/me/product-reviews", reviewHandler.ListForSeller)
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		requireAuth(r)
		r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleAdminTest))
		r.Delete("/test-accounts", accountHandler.PurgeTestAccounts)
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Get("/{id}", reviewHandler.Get)

		r.Group(func(r chi.Router) {
			requireAuth(r)
			r.Post("/", reviewHandler.Create)
			r.Patch("/{id}", reviewHandler.Update)
			r.Delete("/{id}", reviewHandler.Delete)
		})
	})

	r.Get("/api/v1/products/{id}/reviews", reviewHandler.ListByProduct)

	return r
}
