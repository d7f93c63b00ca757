package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ElectionStatus string

const (
	StatusScheduled ElectionStatus = "scheduled"
	StatusOngoing   ElectionStatus = "ongoing"
	StatusCompleted ElectionStatus = "completed"
)

func ParseElectionStatus(s string) (ElectionStatus, bool) {
	switch ElectionStatus(s) {
	case StatusScheduled, StatusOngoing, StatusCompleted:
		return ElectionStatus(s), true
	}
	return "", false
}

type ResultVisibility string

const (
	VisibilityPublic  ResultVisibility = "public"
	VisibilityPrivate ResultVisibility = "private"
)

type Election struct {
	ID               uuid.UUID        `json:"id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	StartAt          time.Time        `json:"start_at"`
	EndAt            time.Time        `json:"end_at"`
	ResultVisibility ResultVisibility `json:"result_visibility"`
	OpenedAt         *time.Time       `json:"opened_at,omitempty"`
	ClosedAt         *time.Time       `json:"closed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	Positions        []Position       `json:"positions,omitempty"`
}

// StatusAt derives the lifecycle state from the stored boundaries and the
// administrative override timestamps. It never reads a persisted status.
func (e *Election) StatusAt(now time.Time) ElectionStatus {
	if e.ClosedAt != nil && !now.Before(*e.ClosedAt) {
		return StatusCompleted
	}

	start := e.StartAt
	if e.OpenedAt != nil && e.OpenedAt.Before(start) {
		start = *e.OpenedAt
	}

	switch {
	case now.Before(start):
		return StatusScheduled
	case now.Before(e.EndAt):
		return StatusOngoing
	default:
		return StatusCompleted
	}
}

func (e *Election) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrInvalidInput
	}
	if !e.StartAt.Before(e.EndAt) {
		return ErrInvalidSchedule
	}
	switch e.ResultVisibility {
	case VisibilityPublic, VisibilityPrivate:
	default:
		return ErrInvalidInput
	}
	return nil
}

// Position returns the position with the given id, if it belongs to e.
func (e *Election) Position(id uuid.UUID) (*Position, bool) {
	for i := range e.Positions {
		if e.Positions[i].ID == id {
			return &e.Positions[i], true
		}
	}
	return nil, false
}

type Position struct {
	ID          uuid.UUID   `json:"id"`
	ElectionID  uuid.UUID   `json:"election_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	OrderIndex  int         `json:"order_index"`
	Candidates  []Candidate `json:"candidates"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (p *Position) HasCandidate(id uuid.UUID) bool {
	for _, c := range p.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

type Candidate struct {
	ID         uuid.UUID  `json:"id"`
	PositionID uuid.UUID  `json:"position_id"`
	Name       string     `json:"name"`
	Manifesto  string     `json:"manifesto,omitempty"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
