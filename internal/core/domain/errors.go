package domain

import "errors"

// Expected outcomes of the voting path. Callers must be able to tell them
// apart, and none of them is a server fault.
var (
	ErrNotEligible       = errors.New("user is not eligible to vote in this election")
	ErrElectionNotOpen   = errors.New("election is not open for voting")
	ErrInvalidBallot     = errors.New("invalid ballot")
	ErrAlreadyVoted      = errors.New("voter has already voted for this position")
	ErrResultsNotVisible = errors.New("results are not visible yet")
)

// ErrStorageUnavailable is a genuine storage fault. Nothing was written and
// the caller may retry.
var ErrStorageUnavailable = errors.New("storage unavailable")

var (
	ErrElectionNotFound     = errors.New("election not found")
	ErrPositionNotFound     = errors.New("position not found")
	ErrCandidateNotFound    = errors.New("candidate not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidSchedule      = errors.New("election start must be before its end")
	ErrInvalidInput         = errors.New("invalid input")
	ErrElectionLocked       = errors.New("election can no longer be modified")
	ErrInvalidTransition    = errors.New("invalid election status transition")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicatePosition    = errors.New("position title already exists in this election")
	ErrDuplicateCandidate   = errors.New("candidate already exists for this position")
)
