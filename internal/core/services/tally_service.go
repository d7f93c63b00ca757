package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.uber.org/zap"
)

type tallyService struct {
	electionRepo   ports.ElectionRepository
	voteRepo       ports.VoteRepository
	membershipRepo ports.MembershipRepository
	eligibility    ports.EligibilityService
	cache          ports.TallyCache
	metrics        ports.VoteMetrics
	clock          clock.Clock
	log            *zap.Logger
}

type TallyServiceDeps struct {
	ElectionRepo   ports.ElectionRepository
	VoteRepo       ports.VoteRepository
	MembershipRepo ports.MembershipRepository
	Eligibility    ports.EligibilityService
	Cache          ports.TallyCache
	Metrics        ports.VoteMetrics
	Clock          clock.Clock
	Log            *zap.Logger
}

func NewTallyService(deps TallyServiceDeps) ports.TallyService {
	return &tallyService{
		electionRepo:   deps.ElectionRepo,
		voteRepo:       deps.VoteRepo,
		membershipRepo: deps.MembershipRepo,
		eligibility:    deps.Eligibility,
		cache:          deps.Cache,
		metrics:        deps.Metrics,
		clock:          deps.Clock,
		log:            deps.Log,
	}
}

// resultsVisible applies the visibility rule at read time: private results
// of an unfinished election are for admins only.
func resultsVisible(election *domain.Election, role domain.Role, now time.Time) error {
	if election.ResultVisibility == domain.VisibilityPrivate &&
		election.StatusAt(now) != domain.StatusCompleted &&
		role != domain.RoleAdmin {
		return domain.ErrResultsNotVisible
	}
	return nil
}

func (s *tallyService) GetTally(ctx context.Context, positionID uuid.UUID, role domain.Role) (*domain.Tally, error) {
	position, err := s.electionRepo.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	election, err := s.electionRepo.GetByID(ctx, position.ElectionID)
	if err != nil {
		return nil, err
	}

	if err := resultsVisible(election, role, s.clock.Now()); err != nil {
		return nil, err
	}

	counts, cached, err := s.cache.Get(ctx, positionID, func(ctx context.Context) (map[uuid.UUID]int64, error) {
		return s.voteRepo.CountByPosition(ctx, positionID)
	})
	if err != nil {
		s.log.Error("failed to count votes", zap.String("position_id", positionID.String()), zap.Error(err))
		return nil, err
	}
	s.metrics.TallyServed(cached)

	return domain.NewTally(position, counts), nil
}

func (s *tallyService) GetTallyAs(ctx context.Context, requester domain.Requester, positionID uuid.UUID) (*domain.Tally, error) {
	position, err := s.electionRepo.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	role, err := s.eligibility.ResolveRole(ctx, requester, position.ElectionID)
	if err != nil {
		return nil, err
	}
	return s.GetTally(ctx, positionID, role)
}

// GetElectionResults counts every position in one pass over the votes of
// the election. Candidates without votes are reported with zero.
func (s *tallyService) GetElectionResults(ctx context.Context, electionID uuid.UUID, role domain.Role) (*domain.ElectionResults, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := resultsVisible(election, role, now); err != nil {
		return nil, err
	}

	counts, err := s.voteRepo.CountByElection(ctx, electionID)
	if err != nil {
		s.log.Error("failed to count votes", zap.String("election_id", electionID.String()), zap.Error(err))
		return nil, err
	}
	s.metrics.TallyServed(false)

	results := &domain.ElectionResults{
		ElectionID:  election.ID,
		Title:       election.Title,
		Status:      election.StatusAt(now),
		Positions:   make([]domain.PositionResult, 0, len(election.Positions)),
		GeneratedAt: now.UTC(),
	}
	for i := range election.Positions {
		position := &election.Positions[i]
		results.Positions = append(results.Positions, domain.NewPositionResult(position, domain.NewTally(position, counts)))
	}

	if err := s.fillTurnout(ctx, election, results); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *tallyService) GetElectionResultsAs(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.ElectionResults, error) {
	role, err := s.eligibility.ResolveRole(ctx, requester, electionID)
	if err != nil {
		return nil, err
	}
	return s.GetElectionResults(ctx, electionID, role)
}

// fillTurnout counts distinct voters against approved members plus the
// owner, who may vote without a membership.
func (s *tallyService) fillTurnout(ctx context.Context, election *domain.Election, results *domain.ElectionResults) error {
	voters, err := s.voteRepo.CountVoters(ctx, election.ID)
	if err != nil {
		return err
	}
	eligible, err := s.membershipRepo.CountApproved(ctx, election.OrganizationID)
	if err != nil {
		return err
	}

	org, err := s.membershipRepo.GetOrganization(ctx, election.OrganizationID)
	if err != nil {
		return err
	}
	ownerMembership, err := s.membershipRepo.GetMembership(ctx, org.ID, org.OwnerID)
	if err != nil {
		return err
	}
	if ownerMembership == nil || ownerMembership.Status != domain.MembershipApproved {
		eligible++
	}

	results.Voters = voters
	results.EligibleVoters = eligible
	if eligible > 0 {
		results.Turnout = (float64(voters) / float64(eligible)) * 100
	}
	return nil
}
