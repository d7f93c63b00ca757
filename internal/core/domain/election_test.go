package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestElectionStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	early := start.Add(-2 * time.Hour)
	closed := start.Add(time.Hour)

	tests := []struct {
		name     string
		opened   *time.Time
		closed   *time.Time
		now      time.Time
		expected ElectionStatus
	}{
		{name: "before start", now: start.Add(-time.Second), expected: StatusScheduled},
		{name: "at start", now: start, expected: StatusOngoing},
		{name: "just before end", now: end.Add(-time.Nanosecond), expected: StatusOngoing},
		{name: "at end", now: end, expected: StatusCompleted},
		{name: "after end", now: end.Add(time.Hour), expected: StatusCompleted},
		{name: "opened early", opened: &early, now: early.Add(time.Minute), expected: StatusOngoing},
		{name: "opened early but not yet", opened: &early, now: early.Add(-time.Minute), expected: StatusScheduled},
		{name: "opened after start has no effect", opened: &closed, now: start.Add(time.Minute), expected: StatusOngoing},
		{name: "closed early", closed: &closed, now: closed, expected: StatusCompleted},
		{name: "before early close", closed: &closed, now: closed.Add(-time.Minute), expected: StatusOngoing},
		{name: "closed before it ever opened", closed: &early, now: early.Add(time.Minute), expected: StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Election{StartAt: start, EndAt: end, OpenedAt: tt.opened, ClosedAt: tt.closed}
			assert.Equal(t, tt.expected, e.StatusAt(tt.now))
		})
	}
}

func TestElectionValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		election Election
		expected error
	}{
		{
			name:     "valid",
			election: Election{Title: "Board", StartAt: start, EndAt: start.Add(time.Hour), ResultVisibility: VisibilityPublic},
		},
		{
			name:     "blank title",
			election: Election{Title: "  ", StartAt: start, EndAt: start.Add(time.Hour), ResultVisibility: VisibilityPublic},
			expected: ErrInvalidInput,
		},
		{
			name:     "start equals end",
			election: Election{Title: "Board", StartAt: start, EndAt: start, ResultVisibility: VisibilityPrivate},
			expected: ErrInvalidSchedule,
		},
		{
			name:     "end before start",
			election: Election{Title: "Board", StartAt: start, EndAt: start.Add(-time.Hour), ResultVisibility: VisibilityPublic},
			expected: ErrInvalidSchedule,
		},
		{
			name:     "unknown visibility",
			election: Election{Title: "Board", StartAt: start, EndAt: start.Add(time.Hour), ResultVisibility: "secret"},
			expected: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.election.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestParseElectionStatus(t *testing.T) {
	status, ok := ParseElectionStatus("ongoing")
	assert.True(t, ok)
	assert.Equal(t, StatusOngoing, status)

	_, ok = ParseElectionStatus("running")
	assert.False(t, ok)
}

func TestElectionPositionLookup(t *testing.T) {
	candidate := Candidate{ID: uuid.New()}
	position := Position{ID: uuid.New(), Candidates: []Candidate{candidate}}
	e := &Election{Positions: []Position{position}}

	p, ok := e.Position(position.ID)
	assert.True(t, ok)
	assert.True(t, p.HasCandidate(candidate.ID))
	assert.False(t, p.HasCandidate(uuid.New()))

	_, ok = e.Position(uuid.New())
	assert.False(t, ok)
}
