package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type ballotValidator struct {
	electionRepo ports.ElectionRepository
	clock        clock.Clock
}

func NewBallotValidator(electionRepo ports.ElectionRepository, clk clock.Clock) ports.BallotValidator {
	return &ballotValidator{
		electionRepo: electionRepo,
		clock:        clk,
	}
}

func (v *ballotValidator) Validate(ctx context.Context, electionID, positionID, candidateID uuid.UUID) (*domain.Election, error) {
	return v.ValidateBallot(ctx, electionID, []domain.BallotEntry{{PositionID: positionID, CandidateID: candidateID}})
}

// ValidateBallot reloads the election from the primary store and checks the
// window at this instant, whatever an earlier eligibility check decided.
func (v *ballotValidator) ValidateBallot(ctx context.Context, electionID uuid.UUID, entries []domain.BallotEntry) (*domain.Election, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty ballot", domain.ErrInvalidBallot)
	}

	election, err := v.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, domain.ErrElectionNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidBallot, err)
		}
		return nil, err
	}

	if election.StatusAt(v.clock.Now()) != domain.StatusOngoing {
		return nil, domain.ErrElectionNotOpen
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.PositionID]; dup {
			return nil, fmt.Errorf("%w: position %s selected twice", domain.ErrInvalidBallot, entry.PositionID)
		}
		seen[entry.PositionID] = struct{}{}

		position, ok := election.Position(entry.PositionID)
		if !ok {
			return nil, fmt.Errorf("%w: position %s is not part of election %s", domain.ErrInvalidBallot, entry.PositionID, electionID)
		}
		if !position.HasCandidate(entry.CandidateID) {
			return nil, fmt.Errorf("%w: candidate %s is not running for position %s", domain.ErrInvalidBallot, entry.CandidateID, entry.PositionID)
		}
	}

	return election, nil
}
