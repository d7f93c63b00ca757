package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository"
	"github.com/vncsmyrnk/pollr/internal/config"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"github.com/vncsmyrnk/pollr/internal/core/services"
	"github.com/vncsmyrnk/pollr/internal/logger"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var loop bool
	var interval time.Duration
	flag.BoolVar(&loop, "loop", false, "Keep running and refresh every interval")
	flag.DurationVar(&interval, "interval", cfg.SyncInterval, "Refresh interval when looping")
	flag.Parse()

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := repository.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to open store", zap.Error(err))
	}
	defer repos.Close(context.Background())

	clk := clock.WallClock
	summaryService := services.NewSummaryService(repos.Elections, repos.Results, clk, lg)

	if !loop {
		if err := refresh(ctx, summaryService); err != nil {
			lg.Fatal("election sync failed", zap.Error(err))
		}
		return
	}

	lg.Info("election sync started", zap.Duration("interval", interval))
	for {
		if err := refresh(ctx, summaryService); err != nil {
			lg.Error("election sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			lg.Info("election sync stopped")
			return
		case <-clk.After(interval):
		}
	}
}

// refresh bounds a single run so a stuck store cannot hang the job.
func refresh(ctx context.Context, summaryService ports.SummaryService) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	return summaryService.Refresh(ctx)
}
