package main

import (
	"context"
	"log"
	"time"

	"github.com/vncsmyrnk/pollr/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/pollr/internal/config"
	"github.com/vncsmyrnk/pollr/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	dialect, err := sqldb.ParseDialect(cfg.DBDriver)
	if err != nil {
		lg.Fatal("migrations only apply to sql stores", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := sqldb.Open(ctx, dialect, cfg.SQLDSN())
	if err != nil {
		lg.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	applied, err := store.Migrate(ctx)
	if err != nil {
		lg.Fatal("failed to apply migrations", zap.Strings("applied", applied), zap.Error(err))
	}

	if len(applied) == 0 {
		lg.Info("database is up to date")
		return
	}
	lg.Info("migrations applied", zap.Strings("applied", applied))
}
