package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type VoteRepository interface {
	// Insert is the duplicate guard: a single unique-constrained write on
	// (voter_token, position_id). A violation is reported as ErrAlreadyVoted.
	Insert(ctx context.Context, vote *domain.Vote) error
	// InsertBatch writes every vote or none of them.
	InsertBatch(ctx context.Context, votes []*domain.Vote) error
	ListByVoter(ctx context.Context, electionID uuid.UUID, token domain.VoterToken) ([]domain.Vote, error)
	CountByPosition(ctx context.Context, positionID uuid.UUID) (map[uuid.UUID]int64, error)
	CountByElection(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error)
	CountVoters(ctx context.Context, electionID uuid.UUID) (int64, error)
	HasVotes(ctx context.Context, electionID uuid.UUID) (bool, error)
}

type CastVoteInput struct {
	Token       domain.VoterToken
	ElectionID  uuid.UUID
	PositionID  uuid.UUID
	CandidateID uuid.UUID
}

type VoteService interface {
	Cast(ctx context.Context, input CastVoteInput) (*domain.VoteReceipt, error)
	CastAs(ctx context.Context, userID, electionID, positionID, candidateID uuid.UUID) (*domain.VoteReceipt, error)
	CastBallotAs(ctx context.Context, userID, electionID uuid.UUID, entries []domain.BallotEntry) ([]*domain.VoteReceipt, error)
	MyVotes(ctx context.Context, userID, electionID uuid.UUID) ([]domain.Vote, error)
}

type BallotValidator interface {
	Validate(ctx context.Context, electionID, positionID, candidateID uuid.UUID) (*domain.Election, error)
	ValidateBallot(ctx context.Context, electionID uuid.UUID, entries []domain.BallotEntry) (*domain.Election, error)
}

// VoteMetrics receives the outcome of every cast and tally read.
type VoteMetrics interface {
	VoteCast(outcome string)
	TallyServed(cached bool)
}
