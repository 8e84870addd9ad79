package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pharmapos/docs"
	"pharmapos/internal/config"
	"pharmapos/internal/infra"
	"pharmapos/internal/metrics"
	"pharmapos/internal/repository"
	"pharmapos/internal/router"
	"pharmapos/internal/schema"
	"pharmapos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title                      pharmapos API
// @version                    1.0
// @description                Pharmacy point-of-sale backend: inventory batches, sales, stores and users.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Redis backs the product cache and the alert queue. Sales keep working without it.
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without product cache and alerts")
		rdb = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mailer := infra.NewMailer(cfg)
	detector := schema.NewDetector(db)
	if caps, err := detector.Get(ctx); err != nil {
		log.Error().Err(err).Msg("sales schema detection failed; sales will retry on first request")
	} else if caps.Attribution == schema.AttributionNone {
		log.Error().Msg("sales table has no cashier attribution column; sale creation will fail until migrated")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	if rdb != nil {
		users := repository.NewUserRepository(db)
		products := repository.NewProductRepository(db)

		pool := worker.NewPool(rdb, cfg.WorkerMaxAttempts, m)
		worker.NewAlertWorker(mailer, users).Register(pool)
		pool.Start(ctx, cfg.WorkerPoolSize)

		worker.StartExpirySweep(ctx, worker.ExpirySweepConfig{
			Products:   products,
			Dispatcher: worker.NewDispatcher(rdb),
			Interval:   cfg.ExpirySweepInterval,
			Window:     time.Duration(cfg.ExpiryAlertDays) * 24 * time.Hour,
			Paused:     func() bool { return mailer.BreakerState() == "open" },
		})
	}

	r := router.New(cfg, router.Deps{DB: db, Redis: rdb, Mailer: mailer, Metrics: m, Detector: detector})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("env", cfg.Env).Msgf("pharmapos backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
