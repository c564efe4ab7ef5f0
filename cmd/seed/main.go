package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"franchise-subscription/internal/config"
	pg "franchise-subscription/internal/infra/db/postgres"
	"franchise-subscription/internal/infra/logging"
	"franchise-subscription/internal/infra/web"
	"franchise-subscription/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	codeRepo := pg.NewCodeRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	txManager := pg.NewTxManager(pool)

	codeUC := usecase.NewCodeUseCase(codeRepo, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, txManager, logger)
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, false, "", cfg.Auth.TokenTTL)

	// If codes already exist, do nothing
	existing, err := codeUC.List(ctx, 0, 1)
	if err != nil {
		log.Fatalf("list codes: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("codes already present. No changes.")
		return
	}

	// Seed sample accounts with dev session tokens for curl-driven testing
	for _, a := range []struct {
		Email string
		Name  string
	}{
		{"owner@franchise.dev", "Franchise Owner"},
		{"shopper@franchise.dev", "Test Shopper"},
	} {
		acc, err := accountUC.RegisterOrFetch(ctx, a.Email, a.Name)
		if err != nil {
			log.Fatalf("seed account %q: %v", a.Email, err)
		}
		tok, err := authMgr.MintToken(acc.ID, acc.Email)
		if err != nil {
			log.Fatalf("mint token for %q: %v", a.Email, err)
		}
		fmt.Printf("account: %s (id=%s)\n  token: %s\n", acc.Email, acc.ID, tok)
	}

	// Seed a few sample codes for testing the redemption flow
	seed := []struct {
		Kind  string
		Plan  string
		Days  int
		Quota int
	}{
		{"voucher", "Starter", 7, 0},
		{"voucher", "Pro", 30, 0},
		{"promo", "Pro", 14, 100},
		{"promo", "Ultra", 90, 5},
	}

	for _, s := range seed {
		switch s.Kind {
		case "voucher":
			c, err := codeUC.CreateVoucher(ctx, s.Plan, s.Days)
			if err != nil {
				log.Fatalf("create voucher: %v", err)
			}
			fmt.Printf("seeded voucher: %s (plan=%s, days=%d)\n", c.Code, c.PlanName, c.DurationDays)
		case "promo":
			c, err := codeUC.CreatePromo(ctx, s.Plan, s.Days, s.Quota)
			if err != nil {
				log.Fatalf("create promo: %v", err)
			}
			fmt.Printf("seeded promo: %s (plan=%s, days=%d, quota=%d)\n", c.Code, c.PlanName, c.DurationDays, c.Quota)
		}
	}

	fmt.Println("✅ Seeding complete.")
}
