package services

import (
	"context"
	"fmt"

	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const summaryConcurrency = 8

type summaryService struct {
	electionRepo ports.ElectionRepository
	resultRepo   ports.ResultRepository
	clock        clock.Clock
	log          *zap.Logger
}

func NewSummaryService(electionRepo ports.ElectionRepository, resultRepo ports.ResultRepository, clk clock.Clock, log *zap.Logger) ports.SummaryService {
	return &summaryService{
		electionRepo: electionRepo,
		resultRepo:   resultRepo,
		clock:        clk,
		log:          log,
	}
}

// Refresh materializes the status column and the per-candidate counts of
// every election. Both are query conveniences; gating decisions always
// recompute status from timestamps.
func (s *summaryService) Refresh(ctx context.Context) error {
	elections, err := s.electionRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all elections: %w", err)
	}

	now := s.clock.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)

	for _, election := range elections {
		election := election
		g.Go(func() error {
			if err := s.electionRepo.SaveStatus(gctx, election.ID, election.StatusAt(now)); err != nil {
				return fmt.Errorf("failed to refresh status of election %s: %w", election.ID, err)
			}
			if err := s.resultRepo.SummarizeVotes(gctx, election.ID, now); err != nil {
				return fmt.Errorf("failed to summarize election %s: %w", election.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.log.Info("election summaries refreshed", zap.Int("elections", len(elections)))
	return nil
}
