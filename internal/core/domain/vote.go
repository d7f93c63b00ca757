package domain

import (
	"time"

	"github.com/google/uuid"
)

// VoterToken is a pseudonymous, per-election voter identity. It is stable for
// a given (user, election) pair and does not reveal the user id.
type VoterToken string

type Vote struct {
	ID          uuid.UUID  `json:"id"`
	ElectionID  uuid.UUID  `json:"election_id"`
	PositionID  uuid.UUID  `json:"position_id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	VoterToken  VoterToken `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (v *Vote) Receipt() *VoteReceipt {
	return &VoteReceipt{
		VoteID:      v.ID,
		ElectionID:  v.ElectionID,
		PositionID:  v.PositionID,
		CandidateID: v.CandidateID,
		CastAt:      v.CreatedAt,
	}
}

type VoteReceipt struct {
	VoteID      uuid.UUID `json:"vote_id"`
	ElectionID  uuid.UUID `json:"election_id"`
	PositionID  uuid.UUID `json:"position_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
}

// BallotEntry is a single (position, candidate) selection.
type BallotEntry struct {
	PositionID  uuid.UUID `json:"position_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
}
