package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

// MembershipRepository is the narrow view of the membership subsystem the
// voting core consumes. Save methods exist for seeding and tests.
type MembershipRepository interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	// GetMembership returns nil without error when the user never joined.
	GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*domain.Membership, error)
	CountApproved(ctx context.Context, organizationID uuid.UUID) (int64, error)

	SaveOrganization(ctx context.Context, org *domain.Organization) error
	SaveMembership(ctx context.Context, membership *domain.Membership) error
}

type EligibilityService interface {
	ResolveEligibility(ctx context.Context, userID, electionID uuid.UUID) (domain.VoterToken, error)
	ResolveRole(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (domain.Role, error)
}

// VoterTokenDeriver maps (user, election) to a deterministic one-way token.
type VoterTokenDeriver interface {
	Derive(userID, electionID uuid.UUID) domain.VoterToken
}
