package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/admithub/internal/admission"
	"github.com/geocoder89/admithub/internal/config"
	"github.com/geocoder89/admithub/internal/db"
	"github.com/geocoder89/admithub/internal/observability"
	"github.com/geocoder89/admithub/internal/payments"
	"github.com/geocoder89/admithub/internal/repo/postgres"
	"github.com/geocoder89/admithub/internal/sweeper"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.NewRegistry())

	eventsRepo := postgres.NewEventsRepo(pool, prom)
	attendeesRepo := postgres.NewAttendeesRepo(pool, prom)
	ledgerRepo := postgres.NewLedgerRepo(pool, prom)

	// the sweeper only cancels and releases, it never talks to the gateway
	gateway := payments.NewStripeGateway(cfg.StripeSecretKey)
	coordinator := payments.NewCoordinator(gateway, cfg.Currency, log, prom)

	controller := admission.NewController(
		eventsRepo,
		attendeesRepo,
		ledgerRepo,
		coordinator,
		nil,
		log,
		prom,
		admission.Config{GraceWindow: cfg.PaymentGraceWindow, ReclaimBatch: cfg.ReclaimBatch},
	)

	s := sweeper.New(sweeper.Config{PollInterval: cfg.SweepInterval}, controller, log)

	log.Info("sweeper starting", "grace_window", cfg.PaymentGraceWindow.String())

	if err := s.Run(ctx); err != nil {
		log.Error("sweeper stopped", "err", err)
		os.Exit(1)
	}

	log.Info("sweeper shutdown complete")
}
