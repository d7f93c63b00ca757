package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.uber.org/zap"
)

const (
	outcomeAccepted      = "accepted"
	outcomeAlreadyVoted  = "already_voted"
	outcomeNotEligible   = "not_eligible"
	outcomeNotOpen       = "not_open"
	outcomeInvalidBallot = "invalid_ballot"
	outcomeStorageError  = "storage_error"
)

type voteService struct {
	electionRepo ports.ElectionRepository
	voteRepo     ports.VoteRepository
	eligibility  ports.EligibilityService
	validator    ports.BallotValidator
	tokens       ports.VoterTokenDeriver
	cache        ports.TallyCache
	metrics      ports.VoteMetrics
	clock        clock.Clock
	log          *zap.Logger
}

type VoteServiceDeps struct {
	ElectionRepo ports.ElectionRepository
	VoteRepo     ports.VoteRepository
	Eligibility  ports.EligibilityService
	Validator    ports.BallotValidator
	Tokens       ports.VoterTokenDeriver
	Cache        ports.TallyCache
	Metrics      ports.VoteMetrics
	Clock        clock.Clock
	Log          *zap.Logger
}

func NewVoteService(deps VoteServiceDeps) ports.VoteService {
	return &voteService{
		electionRepo: deps.ElectionRepo,
		voteRepo:     deps.VoteRepo,
		eligibility:  deps.Eligibility,
		validator:    deps.Validator,
		tokens:       deps.Tokens,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		log:          deps.Log,
	}
}

// Cast validates the ballot and performs the single unique-constrained
// insert. A successful insert is the only state it changes.
func (s *voteService) Cast(ctx context.Context, input ports.CastVoteInput) (*domain.VoteReceipt, error) {
	if input.Token == "" {
		return nil, s.reject(domain.ErrNotEligible, input.ElectionID)
	}

	if _, err := s.validator.Validate(ctx, input.ElectionID, input.PositionID, input.CandidateID); err != nil {
		return nil, s.reject(err, input.ElectionID)
	}

	vote := &domain.Vote{
		ID:          uuid.New(),
		ElectionID:  input.ElectionID,
		PositionID:  input.PositionID,
		CandidateID: input.CandidateID,
		VoterToken:  input.Token,
		CreatedAt:   s.clock.Now().UTC(),
	}

	done := s.cache.BeginWrite(vote.PositionID)
	err := s.voteRepo.Insert(ctx, vote)
	done()
	if err != nil {
		return nil, s.reject(err, input.ElectionID)
	}

	s.metrics.VoteCast(outcomeAccepted)
	s.log.Debug("vote accepted",
		zap.String("election_id", vote.ElectionID.String()),
		zap.String("position_id", vote.PositionID.String()),
	)

	return vote.Receipt(), nil
}

func (s *voteService) CastAs(ctx context.Context, userID, electionID, positionID, candidateID uuid.UUID) (*domain.VoteReceipt, error) {
	token, err := s.eligibility.ResolveEligibility(ctx, userID, electionID)
	if err != nil {
		return nil, s.reject(err, electionID)
	}

	return s.Cast(ctx, ports.CastVoteInput{
		Token:       token,
		ElectionID:  electionID,
		PositionID:  positionID,
		CandidateID: candidateID,
	})
}

// CastBallotAs records several positions at once. Either every entry is
// stored or none is.
func (s *voteService) CastBallotAs(ctx context.Context, userID, electionID uuid.UUID, entries []domain.BallotEntry) ([]*domain.VoteReceipt, error) {
	token, err := s.eligibility.ResolveEligibility(ctx, userID, electionID)
	if err != nil {
		return nil, s.reject(err, electionID)
	}

	if _, err := s.validator.ValidateBallot(ctx, electionID, entries); err != nil {
		return nil, s.reject(err, electionID)
	}

	now := s.clock.Now().UTC()
	votes := make([]*domain.Vote, 0, len(entries))
	for _, entry := range entries {
		votes = append(votes, &domain.Vote{
			ID:          uuid.New(),
			ElectionID:  electionID,
			PositionID:  entry.PositionID,
			CandidateID: entry.CandidateID,
			VoterToken:  token,
			CreatedAt:   now,
		})
	}

	positionIDs := make([]uuid.UUID, 0, len(votes))
	for _, v := range votes {
		positionIDs = append(positionIDs, v.PositionID)
	}
	done := s.cache.BeginWrite(positionIDs...)
	err = s.voteRepo.InsertBatch(ctx, votes)
	done()
	if err != nil {
		return nil, s.reject(err, electionID)
	}

	receipts := make([]*domain.VoteReceipt, 0, len(votes))
	for _, v := range votes {
		s.metrics.VoteCast(outcomeAccepted)
		receipts = append(receipts, v.Receipt())
	}
	s.log.Debug("ballot accepted",
		zap.String("election_id", electionID.String()),
		zap.Int("positions", len(votes)),
	)

	return receipts, nil
}

func (s *voteService) MyVotes(ctx context.Context, userID, electionID uuid.UUID) ([]domain.Vote, error) {
	if _, err := s.electionRepo.GetByID(ctx, electionID); err != nil {
		return nil, err
	}

	votes, err := s.voteRepo.ListByVoter(ctx, electionID, s.tokens.Derive(userID, electionID))
	if err != nil {
		s.log.Error("failed to list voter votes", zap.String("election_id", electionID.String()), zap.Error(err))
		return nil, err
	}
	if votes == nil {
		votes = []domain.Vote{}
	}
	return votes, nil
}

// reject records the outcome of a refused cast. Expected outcomes are not
// server faults and never reach the error log.
func (s *voteService) reject(err error, electionID uuid.UUID) error {
	outcome := outcomeOf(err)
	s.metrics.VoteCast(outcome)

	fields := []zap.Field{
		zap.String("election_id", electionID.String()),
		zap.String("outcome", outcome),
		zap.Error(err),
	}
	if outcome == outcomeStorageError {
		s.log.Error("vote cast failed", fields...)
	} else {
		s.log.Debug("vote rejected", fields...)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return outcomeAlreadyVoted
	case errors.Is(err, domain.ErrNotEligible):
		return outcomeNotEligible
	case errors.Is(err, domain.ErrElectionNotOpen):
		return outcomeNotOpen
	case errors.Is(err, domain.ErrInvalidBallot):
		return outcomeInvalidBallot
	default:
		return outcomeStorageError
	}
}
