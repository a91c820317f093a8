package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/cache"
	"github.com/geocoder89/fintrack/internal/config"
	"github.com/geocoder89/fintrack/internal/db"
	httpx "github.com/geocoder89/fintrack/internal/http"
	"github.com/geocoder89/fintrack/internal/observability"
	"github.com/geocoder89/fintrack/internal/redisclient"
	"github.com/geocoder89/fintrack/internal/repo/memory"
	"github.com/geocoder89/fintrack/internal/repo/postgres"
	"github.com/geocoder89/fintrack/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "fintrack-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
		})
		if err != nil {
			log.Error("otel init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	deps, sweeper, closeStore, err := buildStore(cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	if _, err := db.EnsureTestUser(seedCtx, deps.Users, cfg.TestUserPassword); err != nil {
		cancelSeed()
		log.Error("seeding test user failed", "err", err)
		os.Exit(1)
	}
	cancelSeed()

	sessionCache, closeCache := buildSessionCache(cfg, log)
	defer closeCache()
	deps.Cache = sessionCache
	deps.Prom = prom
	deps.Gatherer = reg

	// the in-memory store has no separate worker process, so sweep here
	if sweeper != nil {
		w := worker.New(worker.Config{Interval: cfg.SweepInterval, WorkerID: "api"}, sweeper, prom, nil, log)
		go func() {
			_ = w.Run(ctx)
		}()
	}

	router := httpx.NewRouter(log, cfg, deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// buildStore returns the router deps for the configured store. For the
// in-memory store it also returns the sweeper the api must run itself.
func buildStore(cfg config.Config, prom *observability.Prom, log *slog.Logger) (httpx.Deps, worker.SessionSweeper, func(), error) {
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return httpx.Deps{
			Users:        store,
			Sessions:     store,
			Transactions: store.Transactions(),
			Ping:         store.Ping,
		}, store, func() {}, nil

	case "postgres", "":
		pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return httpx.Deps{}, nil, nil, fmt.Errorf("db connect: %w", err)
		}

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return httpx.Deps{}, nil, nil, fmt.Errorf("db schema: %w", err)
		}

		return httpx.Deps{
			Users:        postgres.NewUsersRepo(pool, prom),
			Sessions:     postgres.NewSessionsRepo(pool, prom),
			Transactions: postgres.NewTransactionsRepo(pool, prom),
			Ping:         pool.Ping,
		}, nil, pool.Close, nil

	default:
		return httpx.Deps{}, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func buildSessionCache(cfg config.Config, log *slog.Logger) (auth.SessionCache, func()) {
	switch cfg.SessionCache {
	case "redis":
		if cfg.RedisAddr == "" {
			log.Warn("SESSION_CACHE=redis without REDIS_ADDR, falling back to memory")
			return cache.NewSessionCache(cfg.SessionCacheTTL), func() {}
		}

		client := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			log.Warn("redis ping failed", "addr", cfg.RedisAddr, "err", err)
		}

		protected := cache.NewProtectedSessionCache(redisclient.NewSessionCache(client), cache.BreakerConfig{
			Timeout: cfg.AuthStoreTimeout / 3,
		})
		return protected, func() { _ = client.Close() }

	case "off", "none":
		return nil, func() {}

	default:
		return cache.NewSessionCache(cfg.SessionCacheTTL), func() {}
	}
}
