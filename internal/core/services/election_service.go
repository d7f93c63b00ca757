package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type electionService struct {
	electionRepo   ports.ElectionRepository
	membershipRepo ports.MembershipRepository
	voteRepo       ports.VoteRepository
	clock          clock.Clock
	log            *zap.Logger
}

func NewElectionService(
	electionRepo ports.ElectionRepository,
	membershipRepo ports.MembershipRepository,
	voteRepo ports.VoteRepository,
	clk clock.Clock,
	log *zap.Logger,
) ports.ElectionService {
	return &electionService{
		electionRepo:   electionRepo,
		membershipRepo: membershipRepo,
		voteRepo:       voteRepo,
		clock:          clk,
		log:            log,
	}
}

func (s *electionService) GetElectionStatus(ctx context.Context, electionID uuid.UUID) (domain.ElectionStatus, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return "", err
	}
	return election.StatusAt(s.clock.Now()), nil
}

func (s *electionService) Create(ctx context.Context, requester domain.Requester, input ports.CreateElectionInput) (*domain.Election, error) {
	if err := s.requireAdmin(ctx, requester, input.OrganizationID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	visibility := input.ResultVisibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}

	election := &domain.Election{
		ID:               uuid.New(),
		OrganizationID:   input.OrganizationID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		StartAt:          input.StartAt.UTC(),
		EndAt:            input.EndAt.UTC(),
		ResultVisibility: visibility,
		CreatedAt:        now,
		Positions:        []domain.Position{},
	}
	if err := election.Validate(); err != nil {
		return nil, err
	}
	if !now.Before(election.StartAt) {
		return nil, fmt.Errorf("%w: start must be in the future", domain.ErrInvalidSchedule)
	}

	if err := s.electionRepo.Create(ctx, election); err != nil {
		return nil, err
	}

	s.log.Info("election created",
		zap.String("election_id", election.ID.String()),
		zap.String("organization_id", election.OrganizationID.String()),
	)
	return election, nil
}

func (s *electionService) Get(ctx context.Context, electionID uuid.UUID) (*domain.Election, error) {
	return s.electionRepo.GetByID(ctx, electionID)
}

func (s *electionService) List(ctx context.Context, input ports.ListElectionsInput) ([]*domain.Election, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	elections, err := s.electionRepo.List(ctx, ports.ElectionFilter{
		OrganizationID: input.OrganizationID,
		Status:         input.Status,
		Now:            s.clock.Now().UTC(),
		Limit:          size,
		Offset:         (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	if elections == nil {
		elections = []*domain.Election{}
	}
	return elections, nil
}

// Start opens a scheduled election early. The store re-checks the state in
// the same statement that records the override.
func (s *electionService) Start(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.loadForAdmin(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if election.StatusAt(now) != domain.StatusScheduled {
		return nil, domain.ErrInvalidTransition
	}
	if err := s.electionRepo.MarkStarted(ctx, electionID, now); err != nil {
		return nil, err
	}

	s.log.Info("election started manually", zap.String("election_id", electionID.String()))
	return s.electionRepo.GetByID(ctx, electionID)
}

func (s *electionService) End(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.loadForAdmin(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if election.StatusAt(now) == domain.StatusCompleted {
		return nil, domain.ErrInvalidTransition
	}
	if err := s.electionRepo.MarkEnded(ctx, electionID, now); err != nil {
		return nil, err
	}

	s.log.Info("election ended manually", zap.String("election_id", electionID.String()))
	return s.electionRepo.GetByID(ctx, electionID)
}

func (s *electionService) AddPosition(ctx context.Context, requester domain.Requester, electionID uuid.UUID, input ports.AddPositionInput) (*domain.Position, error) {
	election, err := s.loadEditable(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: position title is required", domain.ErrInvalidInput)
	}

	position := &domain.Position{
		ID:          uuid.New(),
		ElectionID:  election.ID,
		Title:       title,
		Description: input.Description,
		OrderIndex:  input.OrderIndex,
		Candidates:  []domain.Candidate{},
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.electionRepo.AddPosition(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

func (s *electionService) RemovePosition(ctx context.Context, requester domain.Requester, positionID uuid.UUID) error {
	position, err := s.electionRepo.GetPosition(ctx, positionID)
	if err != nil {
		return err
	}
	if _, err := s.loadUnvoted(ctx, requester, position.ElectionID); err != nil {
		return err
	}
	return s.electionRepo.RemovePosition(ctx, positionID)
}

func (s *electionService) AddCandidate(ctx context.Context, requester domain.Requester, positionID uuid.UUID, input ports.AddCandidateInput) (*domain.Candidate, error) {
	position, err := s.electionRepo.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadEditable(ctx, requester, position.ElectionID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: candidate name is required", domain.ErrInvalidInput)
	}

	candidate := &domain.Candidate{
		ID:         uuid.New(),
		PositionID: positionID,
		Name:       name,
		Manifesto:  input.Manifesto,
		UserID:     input.UserID,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.electionRepo.AddCandidate(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *electionService) RemoveCandidate(ctx context.Context, requester domain.Requester, candidateID uuid.UUID) error {
	candidate, err := s.electionRepo.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	position, err := s.electionRepo.GetPosition(ctx, candidate.PositionID)
	if err != nil {
		return err
	}
	if _, err := s.loadUnvoted(ctx, requester, position.ElectionID); err != nil {
		return err
	}
	return s.electionRepo.RemoveCandidate(ctx, candidateID)
}

func (s *electionService) requireAdmin(ctx context.Context, requester domain.Requester, organizationID uuid.UUID) error {
	role, err := organizationRole(ctx, s.membershipRepo, requester, organizationID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *electionService) loadForAdmin(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, requester, election.OrganizationID); err != nil {
		return nil, err
	}
	return election, nil
}

// loadEditable allows ballot changes only while the election is scheduled.
func (s *electionService) loadEditable(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.loadForAdmin(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}
	if election.StatusAt(s.clock.Now()) != domain.StatusScheduled {
		return nil, domain.ErrElectionLocked
	}
	return election, nil
}

// loadUnvoted additionally refuses once any vote references the election.
// The storage foreign keys enforce the same rule for races with a cast.
func (s *electionService) loadUnvoted(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.loadEditable(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}
	voted, err := s.voteRepo.HasVotes(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, domain.ErrElectionLocked
	}
	return election, nil
}
