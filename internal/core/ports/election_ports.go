package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type ElectionFilter struct {
	OrganizationID *uuid.UUID
	Status         *domain.ElectionStatus
	Now            time.Time
	Limit          int
	Offset         int
}

type ElectionRepository interface {
	Create(ctx context.Context, election *domain.Election) error
	// GetByID loads the election with its positions and candidates.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	GetAll(ctx context.Context) ([]*domain.Election, error)
	List(ctx context.Context, filter ElectionFilter) ([]*domain.Election, error)

	// MarkStarted and MarkEnded are conditional single-statement updates.
	// They report ErrInvalidTransition when the election is no longer in a
	// state that allows the override at the given instant.
	MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEnded(ctx context.Context, id uuid.UUID, at time.Time) error
	SaveStatus(ctx context.Context, id uuid.UUID, status domain.ElectionStatus) error

	AddPosition(ctx context.Context, position *domain.Position) error
	GetPosition(ctx context.Context, id uuid.UUID) (*domain.Position, error)
	RemovePosition(ctx context.Context, id uuid.UUID) error
	AddCandidate(ctx context.Context, candidate *domain.Candidate) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	RemoveCandidate(ctx context.Context, id uuid.UUID) error
}

type CreateElectionInput struct {
	OrganizationID   uuid.UUID
	Title            string
	Description      string
	StartAt          time.Time
	EndAt            time.Time
	ResultVisibility domain.ResultVisibility
}

type ListElectionsInput struct {
	OrganizationID *uuid.UUID
	Status         *domain.ElectionStatus
	Page           int
	PageSize       int
}

type AddPositionInput struct {
	Title       string
	Description string
	OrderIndex  int
}

type AddCandidateInput struct {
	Name      string
	Manifesto string
	UserID    *uuid.UUID
}

type ElectionService interface {
	GetElectionStatus(ctx context.Context, electionID uuid.UUID) (domain.ElectionStatus, error)
	Create(ctx context.Context, requester domain.Requester, input CreateElectionInput) (*domain.Election, error)
	Get(ctx context.Context, electionID uuid.UUID) (*domain.Election, error)
	List(ctx context.Context, input ListElectionsInput) ([]*domain.Election, error)
	Start(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error)
	End(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error)

	AddPosition(ctx context.Context, requester domain.Requester, electionID uuid.UUID, input AddPositionInput) (*domain.Position, error)
	RemovePosition(ctx context.Context, requester domain.Requester, positionID uuid.UUID) error
	AddCandidate(ctx context.Context, requester domain.Requester, positionID uuid.UUID, input AddCandidateInput) (*domain.Candidate, error)
	RemoveCandidate(ctx context.Context, requester domain.Requester, candidateID uuid.UUID) error
}
