package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type eligibilityService struct {
	electionRepo   ports.ElectionRepository
	membershipRepo ports.MembershipRepository
	tokens         ports.VoterTokenDeriver
	clock          clock.Clock
}

func NewEligibilityService(
	electionRepo ports.ElectionRepository,
	membershipRepo ports.MembershipRepository,
	tokens ports.VoterTokenDeriver,
	clk clock.Clock,
) ports.EligibilityService {
	return &eligibilityService{
		electionRepo:   electionRepo,
		membershipRepo: membershipRepo,
		tokens:         tokens,
		clock:          clk,
	}
}

// ResolveEligibility checks the window first and membership second, then
// derives the voter token.
func (s *eligibilityService) ResolveEligibility(ctx context.Context, userID, electionID uuid.UUID) (domain.VoterToken, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, domain.ErrElectionNotFound) {
			return "", fmt.Errorf("%w: %w", domain.ErrElectionNotOpen, err)
		}
		return "", err
	}

	if election.StatusAt(s.clock.Now()) != domain.StatusOngoing {
		return "", domain.ErrElectionNotOpen
	}

	role, err := organizationRole(ctx, s.membershipRepo, domain.Requester{UserID: userID}, election.OrganizationID)
	if err != nil {
		return "", err
	}
	if role == domain.RoleGuest {
		return "", domain.ErrNotEligible
	}

	return s.tokens.Derive(userID, electionID), nil
}

func (s *eligibilityService) ResolveRole(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (domain.Role, error) {
	if requester.SuperAdmin {
		return domain.RoleAdmin, nil
	}

	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return "", err
	}
	return organizationRole(ctx, s.membershipRepo, requester, election.OrganizationID)
}

// organizationRole maps a requester to admin, voter or guest within one
// organization. The owner is an admin and may vote. Only approved
// memberships count.
func organizationRole(ctx context.Context, repo ports.MembershipRepository, requester domain.Requester, organizationID uuid.UUID) (domain.Role, error) {
	org, err := repo.GetOrganization(ctx, organizationID)
	if err != nil {
		return "", err
	}
	if requester.SuperAdmin || org.OwnerID == requester.UserID {
		return domain.RoleAdmin, nil
	}

	membership, err := repo.GetMembership(ctx, organizationID, requester.UserID)
	if err != nil {
		return "", err
	}
	if membership == nil || membership.Status != domain.MembershipApproved {
		return domain.RoleGuest, nil
	}
	if membership.Role == domain.MemberRoleAdmin {
		return domain.RoleAdmin, nil
	}
	return domain.RoleVoter, nil
}
