package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/config"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/handlers"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/geocoder89/fintrack/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type UserRepository interface {
	handlers.UserStore
	handlers.UserReader
	auth.AccountStore
}

type SessionRepository interface {
	auth.SessionLookup
	auth.SessionWriter
}

// Deps is everything the router needs from the outside. Cache, Prom and
// Gatherer are optional.
type Deps struct {
	Users        UserRepository
	Sessions     SessionRepository
	Transactions handlers.TransactionStore
	Ping         func(ctx context.Context) error

	Cache    auth.SessionCache
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware("fintrack-api"))
	}
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders(cfg.IsProd()))
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// session resolution
	sources := auth.DefaultTokenSources(cfg.ProviderPrefix)

	var lookup auth.SessionLookup = deps.Sessions
	if deps.Cache != nil {
		cached := auth.NewCachedLookup(deps.Sessions, deps.Cache, cfg.SessionCacheTTL)
		if deps.Prom != nil {
			cached.OnLookup(deps.Prom.ObserveCacheLookup)
		}
		lookup = cached
	}

	resolver := auth.NewResolver(lookup, sources, auth.WithStoreTimeout(cfg.AuthStoreTimeout))

	var authObs middlewares.AuthObserver
	if deps.Prom != nil {
		authObs = deps.Prom
	}
	authMW := middlewares.NewAuthMiddleware(resolver, authObs)

	var evictor handlers.SessionEvictor
	if e, ok := deps.Cache.(handlers.SessionEvictor); ok {
		evictor = e
	}

	// handlers
	health := handlers.NewHealthHandler(deps.Ping)
	authHandler := handlers.NewAuthHandler(handlers.AuthDeps{
		Resolver:       resolver,
		TestIssuer:     auth.NewTestIssuer(deps.Sessions, deps.Users, sources, cfg.SessionTTL),
		ProviderIssuer: auth.NewProviderIssuer(deps.Sessions, deps.Users, cfg.ProviderPrefix, cfg.SessionTTL),
		Verifier:       auth.NewAssertionVerifier(cfg.IdentityAssertionSecret),
		Revoker:        auth.NewRevoker(deps.Sessions, deps.Cache),
		Users:          deps.Users,
		ProviderPrefix: cfg.ProviderPrefix,
		SecureCookies:  cfg.IsProd(),
	})
	txHandler := handlers.NewTransactionsHandler(deps.Transactions)
	usersHandler := handlers.NewUsersHandler(deps.Users, evictor)
	reportsHandler := handlers.NewReportsHandler(deps.Transactions)

	// routes
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	signIn := middlewares.NewRateLimiter(20, time.Minute)

	authGroup := api.Group("/auth")
	{
		authGroup.GET("/check-session", authHandler.CheckSession)
		authGroup.GET("/logout", authHandler.Logout)
		authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
		authGroup.POST("/force-session-refresh", authHandler.ForceSessionRefresh)

		limited := authGroup.Group("", signIn.RateLimiterMiddleware(middlewares.KeyByIP))
		limited.GET("/test-login", authHandler.TestLogin)
		limited.POST("/test-user", authHandler.TestUser)
		limited.POST("/sign-in/credentials", middlewares.RequireJSON(), authHandler.SignInCredentials)
		limited.GET("/callback/:provider", authHandler.ProviderCallback)
	}

	// reads need a session; writes are checked per method inside the handler
	writes := middlewares.NewRateLimiter(120, time.Minute).RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	tx := api.Group("/transactions", authMW.RequireAuth(), middlewares.RequireJSON())
	{
		tx.GET("", txHandler.List)
		tx.GET("/summary", txHandler.Summary)
		tx.POST("", writes, txHandler.Create)
		tx.PUT("/:id", writes, txHandler.Update)
		tx.DELETE("/:id", writes, txHandler.Delete)
	}

	users := api.Group("/users", authMW.Require(user.RoleAdmin), middlewares.RequireJSON())
	{
		users.GET("", usersHandler.List)
		users.POST("", usersHandler.Create)
		users.PUT("/:id", usersHandler.Update)
		users.DELETE("", usersHandler.Delete)
		users.DELETE("/:id", usersHandler.Delete)
	}

	api.GET("/reports/csv", authMW.RequireAuth(), middlewares.RequireRole(user.RoleAdmin), reportsHandler.CSV)

	log.Info("routes registered", "provider", cfg.ProviderPrefix, "session_cache", deps.Cache != nil)

	return r
}
