package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/internal/interfaces/http/handlers"
	"github.com/ruziba3vich/toolshed/internal/interfaces/http/middleware"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// Router wraps the Gin engine with application dependencies.
type Router struct {
	engine      *gin.Engine
	rateLimiter *middleware.RateLimiter
}

// RouterDeps contains dependencies needed by the router.
type RouterDeps struct {
	SessionService *services.SessionService
	AuthService    *services.AuthService
	OAuthService   *services.OAuthService
	Metrics        *metrics.Metrics
	Logger         logger.Logger
	DBHealth       handlers.HealthChecker
	// RedisHealth is nil when Redis is not configured.
	RedisHealth handlers.HealthChecker
}

// NewRouter creates and configures the HTTP router. X-Forwarded-For is
// only honoured when the peer is one of cfg.Security.TrustedProxies.
func NewRouter(cfg *config.Config, deps *RouterDeps) (*Router, error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Request logging first so recovered panics are logged with a request ID
	engine.Use(middleware.NewRequestLoggerMiddleware(deps.Logger, deps.Metrics).Handler())
	engine.Use(gin.Recovery())

	cookies := middleware.NewCookies(cfg.App.IsProduction(), cfg.Security.CookieDomain)
	lifetime := deps.SessionService.Lifetime()

	authHandler := handlers.NewAuthHandler(deps.AuthService, cookies, lifetime)
	oauthHandler := handlers.NewOAuthHandler(deps.OAuthService, cookies, lifetime)
	adminHandler := handlers.NewAdminHandler(deps.SessionService)
	healthHandler := handlers.NewHealthHandler(deps.DBHealth, deps.RedisHealth)

	sessionMiddleware := middleware.NewSessionMiddleware(deps.SessionService, cookies)

	var rateLimiter *middleware.RateLimiter
	if cfg.Security.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}

	// Health and metrics endpoints (no session lookup, no rate limiting)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/live", healthHandler.Live)
	engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	app := engine.Group("")
	app.Use(sessionMiddleware.Resolve())

	auth := app.Group("/auth")
	if rateLimiter != nil {
		auth.Use(rateLimiter.Middleware())
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		protected := auth.Group("")
		protected.Use(sessionMiddleware.RequireAuth())
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.Me)
			protected.POST("/password", authHandler.ChangePassword)
		}
	}

	login := app.Group("/login")
	if rateLimiter != nil {
		login.Use(rateLimiter.Middleware())
	}
	{
		login.GET("/:provider", oauthHandler.Login)
		login.GET("/:provider/callback", oauthHandler.Callback)
	}

	admin := app.Group("/admin")
	admin.Use(sessionMiddleware.RequireRole(user.RoleAdmin))
	{
		admin.DELETE("/users/:user_id/sessions", adminHandler.InvalidateUserSessions)
	}

	return &Router{
		engine:      engine,
		rateLimiter: rateLimiter,
	}, nil
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Close releases background resources held by middleware.
func (r *Router) Close() {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
}
