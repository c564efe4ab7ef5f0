package main

import (
	"context"
	"flag"
	"log"

	"franchise-subscription/internal/config"
	"franchise-subscription/internal/infra/db/postgres"
	"franchise-subscription/internal/infra/logging"
	"franchise-subscription/internal/infra/redis"
	"franchise-subscription/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove stale rate-limit counters.
	log.Println("[1/3] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			accounts, subscriptions, redemption_codes, redemption_records
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed a predictable set of codes for the test script to redeem.
	log.Println("[3/3] Seeding test codes...")
	seedCodes(ctx, pool, logger)

	log.Println("--- ✅ E2E Environment Setup Complete ---")
}

// seedCodes creates one code of each shape the e2e script exercises.
func seedCodes(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) {
	codeUC := usecase.NewCodeUseCase(postgres.NewCodeRepo(pool), logger)

	if c, err := codeUC.CreateVoucher(ctx, "Pro", 30); err != nil {
		log.Printf("failed to seed voucher: %v", err)
	} else {
		log.Printf("voucher: %s", c.Code)
	}

	if c, err := codeUC.CreatePromo(ctx, "Starter", 7, 3); err != nil {
		log.Printf("failed to seed promo: %v", err)
	} else {
		log.Printf("promo (quota 3): %s", c.Code)
	}
}
