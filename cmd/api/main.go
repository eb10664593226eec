package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/admithub/internal/admission"
	"github.com/geocoder89/admithub/internal/auth"
	"github.com/geocoder89/admithub/internal/cache"
	"github.com/geocoder89/admithub/internal/config"
	"github.com/geocoder89/admithub/internal/db"
	httpx "github.com/geocoder89/admithub/internal/http"
	"github.com/geocoder89/admithub/internal/notifications"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/geocoder89/admithub/internal/payments"
	"github.com/geocoder89/admithub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// tracing is optional; without an endpoint spans stay local no-ops
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, "admithub-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
			log.Error("admin seed failed", "err", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(registry)

	eventsRepo := postgres.NewEventsRepo(pool, prom)
	attendeesRepo := postgres.NewAttendeesRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)
	ledgerRepo := postgres.NewLedgerRepo(pool, prom)

	eventCache := cache.NewEvents(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.EventCacheTTL,
	}, eventsRepo, log)
	defer func() { _ = eventCache.Close() }()

	gateway := payments.NewStripeGateway(cfg.StripeSecretKey)
	coordinator := payments.NewCoordinator(gateway, cfg.Currency, log, prom)

	controller := admission.NewController(
		eventCache,
		attendeesRepo,
		ledgerRepo,
		coordinator,
		notifications.NewLogNotifier(),
		log,
		prom,
		admission.Config{GraceWindow: cfg.PaymentGraceWindow, ReclaimBatch: cfg.ReclaimBatch},
	)

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)

	router := httpx.NewRouter(httpx.Dependencies{
		Log:         log,
		Admission:   controller,
		Payments:    coordinator,
		Users:       usersRepo,
		JWT:         jwtManager,
		Verifier:    jwtManager,
		DBPinger:    pool,
		CachePinger: eventCache,
		Prom:        prom,
		Registry:    registry,
		Env:         cfg.Env,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
