// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"franchise-subscription/internal/config"
	"franchise-subscription/internal/infra/api"
	pg "franchise-subscription/internal/infra/db/postgres"
	"franchise-subscription/internal/infra/logging"
	"franchise-subscription/internal/infra/metrics"
	red "franchise-subscription/internal/infra/redis"
	"franchise-subscription/internal/infra/sched"
	"franchise-subscription/internal/infra/web"
	"franchise-subscription/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	codeRepo := pg.NewCodeRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	redemptionUC := usecase.NewRedemptionUseCase(codeRepo, subRepo, txManager, logger)
	codeUC := usecase.NewCodeUseCase(codeRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	statsUC := usecase.NewStatsUseCase(accountRepo, subRepo, codeRepo, logger)

	// ---- Session auth ----
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, !cfg.Runtime.Dev, "", cfg.Auth.TokenTTL)

	// ---- Public API ----
	apiServer := api.NewServer(redemptionUC, subUC, authMgr, rateLimiter, cfg.API, logger)
	publicSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: apiServer.Router(),
	}

	// ---- Admin API ----
	adminMux := http.NewServeMux()
	web.NewServer(codeUC, statsUC, subUC, cfg.Admin.APIKey, logger).RegisterRoutes(adminMux)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminMux,
	}

	// ---- Background work ----
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryCheckInterval, subUC, logger)
	go func() {
		if err := expiryWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("public API listening")
		if err := publicSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("public API server")
		}
	}()
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin API listening")
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("admin API server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := publicSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public API shutdown")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin API shutdown")
	}
}
