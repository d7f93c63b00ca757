package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"

	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollr/internal/adapters/metrics"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository"
	"github.com/vncsmyrnk/pollr/internal/adapters/votertoken"
	"github.com/vncsmyrnk/pollr/internal/config"
	"github.com/vncsmyrnk/pollr/internal/core/services"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := repository.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer repos.Close(context.Background())

	tokens, err := votertoken.New(cfg.VoterSecret, cfg.VoterKeyID)
	if err != nil {
		lg.Fatal("failed to build voter token deriver", zap.Error(err))
	}

	clk := clock.WallClock
	m := metrics.New()
	cache := services.NewTallyCache(cfg.TallyCacheTTL, clk)

	eligibility := services.NewEligibilityService(repos.Elections, repos.Memberships, tokens, clk)
	validator := services.NewBallotValidator(repos.Elections, clk)
	electionService := services.NewElectionService(repos.Elections, repos.Memberships, repos.Votes, clk, lg)
	voteService := services.NewVoteService(services.VoteServiceDeps{
		ElectionRepo: repos.Elections,
		VoteRepo:     repos.Votes,
		Eligibility:  eligibility,
		Validator:    validator,
		Tokens:       tokens,
		Cache:        cache,
		Metrics:      m,
		Clock:        clk,
		Log:          lg,
	})
	tallyService := services.NewTallyService(services.TallyServiceDeps{
		ElectionRepo:   repos.Elections,
		VoteRepo:       repos.Votes,
		MembershipRepo: repos.Memberships,
		Eligibility:    eligibility,
		Cache:          cache,
		Metrics:        m,
		Clock:          clk,
		Log:            lg,
	})

	handler := http.NewHandler(
		http.RouterConfig{
			JWTSecret:      []byte(cfg.JWTSecret),
			AllowedOrigins: cfg.AllowedOrigins(),
			Metrics:        m.Handler(),
		},
		http.NewElectionHandler(electionService, clk),
		http.NewVoteHandler(voteService),
		http.NewResultHandler(tallyService),
	)
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		lg.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown failed", zap.Error(err))
	}
}
