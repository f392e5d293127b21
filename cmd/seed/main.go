package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/repository"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/seed"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

func main() {
	resetInventory := flag.Bool("reset-inventory", false, "set every stock level to zero instead of seeding")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load("pharmacy-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("seed", cfg.Server.Environment)
	ctx := context.Background()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	tx := repository.NewTxRunner(db)

	if *resetInventory {
		stock := service.NewStockService(tx, nil, nil, log)
		rows, err := stock.ResetAll(ctx, actor.SystemActor([]string{seed.Mycelium, seed.Angel}))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset inventory")
		}
		fmt.Printf("Reset %d inventory rows to zero.\n", rows)
		return
	}

	res, err := seed.New(tx, cfg.Auth.BcryptCost, log).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	fmt.Printf("Seeded %d pharmacies, %d medications, %d new inventory rows, %d new users.\n",
		res.Pharmacies, res.Medications, res.InventoryRows, res.UsersCreated)
	fmt.Println()
	fmt.Println("Default accounts (existing accounts keep their passwords):")
	for _, a := range seed.Accounts() {
		fmt.Printf("  %-30s %s\n", a.Email, a.Password)
	}
}
