package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Tally holds the vote count per candidate of one position. Every candidate
// of the position has an entry, zero included.
type Tally struct {
	PositionID uuid.UUID           `json:"position_id"`
	Counts     map[uuid.UUID]int64 `json:"counts"`
	Total      int64               `json:"total"`
}

// NewTally zero-fills counts for every candidate and keeps only the counts
// that belong to the position.
func NewTally(position *Position, counts map[uuid.UUID]int64) *Tally {
	t := &Tally{
		PositionID: position.ID,
		Counts:     make(map[uuid.UUID]int64, len(position.Candidates)),
	}
	for _, c := range position.Candidates {
		n := counts[c.ID]
		t.Counts[c.ID] = n
		t.Total += n
	}
	return t
}

type CandidateResult struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	VoteCount   int64     `json:"vote_count"`
	Percentage  float64   `json:"percentage"`
}

type PositionResult struct {
	PositionID uuid.UUID         `json:"position_id"`
	Title      string            `json:"title"`
	TotalVotes int64             `json:"total_votes"`
	Candidates []CandidateResult `json:"candidates"`
}

type ElectionResults struct {
	ElectionID     uuid.UUID        `json:"election_id"`
	Title          string           `json:"title"`
	Status         ElectionStatus   `json:"status"`
	Positions      []PositionResult `json:"positions"`
	Voters         int64            `json:"voters"`
	EligibleVoters int64            `json:"eligible_voters"`
	Turnout        float64          `json:"turnout"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// NewPositionResult builds the named view of a tally, highest count first.
func NewPositionResult(position *Position, tally *Tally) PositionResult {
	res := PositionResult{
		PositionID: position.ID,
		Title:      position.Title,
		TotalVotes: tally.Total,
		Candidates: make([]CandidateResult, 0, len(position.Candidates)),
	}
	for _, c := range position.Candidates {
		count := tally.Counts[c.ID]
		percentage := 0.0
		if tally.Total > 0 {
			percentage = (float64(count) / float64(tally.Total)) * 100
		}
		res.Candidates = append(res.Candidates, CandidateResult{
			CandidateID: c.ID,
			Name:        c.Name,
			VoteCount:   count,
			Percentage:  percentage,
		})
	}
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].VoteCount > res.Candidates[j].VoteCount
	})
	return res
}

// PositionSummary is a materialized count produced by the summary job.
type PositionSummary struct {
	PositionID  uuid.UUID
	CandidateID uuid.UUID
	VoteCount   int64
	RefreshedAt time.Time
}
