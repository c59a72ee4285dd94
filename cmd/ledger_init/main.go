// Command ledger_init constructs the ledger in a persistent store from the
// LEDGER_* settings and prints a bearer token for the owner. With -reset it
// first drops the existing ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"custody/internal/config"
	"custody/internal/domain/ledger"
	"custody/internal/logger"
	"custody/internal/models"
	"custody/internal/repositories"
	ledgerservice "custody/internal/services/ledger"
	"custody/internal/utils"
)

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed owner token, 0 to skip")
	reset := flag.Bool("reset", false, "drop every ledger table before initializing (refused in production)")
	flag.Parse()

	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.StoreDriver == "memory" {
		log.Fatal("ledger_init needs a persistent store; set STORE_DRIVER to postgres or sqlite")
	}
	if cfg.LedgerOwner == "" {
		log.Fatal("LEDGER_OWNER must be set in environment")
	}

	if *reset {
		if cfg.IsProduction() {
			log.Fatal("refusing to reset the ledger in production")
		}
		if err := repositories.ResetStore(cfg); err != nil {
			log.Fatal("failed to reset store", "error", err)
		}
		log.Warn("ledger tables dropped", "driver", cfg.StoreDriver)
	}

	store, closeStore, err := repositories.OpenStore(cfg, nil, log)
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	ctx := context.Background()
	st, err := ledgerservice.Initialize(ctx, store, ledger.Config{
		Name:        cfg.LedgerName,
		Owner:       ledger.Address(cfg.LedgerOwner),
		WithdrawCap: ledger.Amount(cfg.WithdrawCap),
		BankCap:     ledger.Amount(cfg.BankCap),
		MinDeposit:  ledger.Amount(cfg.MinDeposit),
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		st, err = ledgerservice.Open(ctx, store)
		if err != nil {
			log.Fatal("failed to load ledger", "error", err)
		}
		log.Info("ledger already exists", "name", st.Name, "owner", st.Owner)
	case err != nil:
		log.Fatal("failed to create ledger", "error", err)
	default:
		log.Info("ledger created", "name", st.Name, "owner", st.Owner, "withdraw_cap", st.WithdrawCap, "bank_cap", st.BankCap)
	}

	if *tokenTTL <= 0 {
		return
	}
	token, err := utils.GenerateToken(cfg.JWTSecret, string(st.Owner), models.GetDefaultPermissions(), *tokenTTL)
	if err != nil {
		log.Fatal("failed to issue owner token", "error", err)
	}
	fmt.Println(token)
}
