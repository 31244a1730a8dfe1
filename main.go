package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prizeledger/cmd"
	"prizeledger/config"
	"prizeledger/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(cfg); err != nil {
				log.WithError(err).Fatal("Migration error")
			}
			return
		case "reconcile":
			if len(os.Args) < 3 {
				log.Fatal("usage: prizeledger reconcile <walletId>")
			}
			if err := cmd.Reconcile(ctx, os.Args[2]); err != nil {
				log.WithError(err).Fatal("Reconciliation failed")
			}
			return
		case "serve":
		default:
			log.Fatalf("unknown command %q, expected serve, migrate or reconcile", os.Args[1])
		}
	}

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand(cfg *config.Config) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: prizeledger migrate [up|down|status] [args...]")
	}

	databaseURL := cfg.GetDatabaseURL()
	switch os.Args[2] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		status, err := database.GetMigrationStatus(databaseURL)
		if err != nil {
			return err
		}
		if !status.Applied {
			log.Info("No migrations applied")
			return nil
		}
		log.WithFields(log.Fields{
			"version": status.Version,
			"dirty":   status.Dirty,
		}).Info("Migration status")
		return nil
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}
