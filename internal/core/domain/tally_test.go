package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTallyZeroFillsAndIgnoresForeignCandidates(t *testing.T) {
	a := Candidate{ID: uuid.New(), Name: "A"}
	b := Candidate{ID: uuid.New(), Name: "B"}
	position := &Position{ID: uuid.New(), Candidates: []Candidate{a, b}}

	tally := NewTally(position, map[uuid.UUID]int64{
		a.ID:       3,
		uuid.New(): 10,
	})

	assert.Equal(t, position.ID, tally.PositionID)
	assert.Equal(t, map[uuid.UUID]int64{a.ID: 3, b.ID: 0}, tally.Counts)
	assert.Equal(t, int64(3), tally.Total)
}

func TestNewPositionResult(t *testing.T) {
	a := Candidate{ID: uuid.New(), Name: "A"}
	b := Candidate{ID: uuid.New(), Name: "B"}
	c := Candidate{ID: uuid.New(), Name: "C"}
	position := &Position{ID: uuid.New(), Title: "Chair", Candidates: []Candidate{a, b, c}}

	result := NewPositionResult(position, NewTally(position, map[uuid.UUID]int64{a.ID: 1, b.ID: 3}))

	assert.Equal(t, "Chair", result.Title)
	assert.Equal(t, int64(4), result.TotalVotes)
	require.Len(t, result.Candidates, 3)
	assert.Equal(t, "B", result.Candidates[0].Name)
	assert.InDelta(t, 75.0, result.Candidates[0].Percentage, 0.001)
	assert.Equal(t, "A", result.Candidates[1].Name)
	assert.InDelta(t, 25.0, result.Candidates[1].Percentage, 0.001)
	assert.Equal(t, "C", result.Candidates[2].Name)
	assert.Equal(t, int64(0), result.Candidates[2].VoteCount)
	assert.Zero(t, result.Candidates[2].Percentage)
}

func TestNewPositionResultWithoutVotes(t *testing.T) {
	position := &Position{ID: uuid.New(), Candidates: []Candidate{{ID: uuid.New(), Name: "Only"}}}

	result := NewPositionResult(position, NewTally(position, nil))

	assert.Zero(t, result.TotalVotes)
	require.Len(t, result.Candidates, 1)
	assert.Zero(t, result.Candidates[0].Percentage)
}
