package main

import (
	"context"
	"log"
	"os"

	"github.com/Skotchmaster/research_repository/internal/config"
	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/seed"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	if err := seed.Run(ctx, repo.New(gdb), cfg.SeedAdminEmail, cfg.SeedAdminName, logger); err != nil {
		logger.Error("seed_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed_complete")
}
