package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"storefront-backend/internal/config"
	"storefront-backend/internal/ingest"
	"storefront-backend/internal/orders"
	"storefront-backend/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	file := flag.String("file", "products.csv", "path to the products CSV")
	workers := flag.Int("workers", 8, "concurrent seller lookups")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load()
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("open csv", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	logger.Info("starting product migration", "file", *file, "workers", *workers)
	m := &ingest.ProductMigrator{
		Catalog: &orders.CatalogRepo{DB: db},
		Users:   &orders.UserRepo{DB: db},
		Log:     logger,
		Workers: *workers,
	}
	report, err := m.Run(ctx, f)
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("product migration complete",
		"migrated", report.Migrated, "skipped", len(report.Skips))
}
