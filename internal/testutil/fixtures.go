package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

// PositionFixture describes a position to seed and the names of its
// candidates.
type PositionFixture struct {
	Title      string
	Candidates []string
}

// Fixtures writes test data straight through the repositories, skipping
// the service-level rules such as "start must be in the future".
type Fixtures struct {
	t           *testing.T
	elections   ports.ElectionRepository
	memberships ports.MembershipRepository
}

func NewFixtures(t *testing.T, elections ports.ElectionRepository, memberships ports.MembershipRepository) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, elections: elections, memberships: memberships}
}

func (f *Fixtures) CreateOrganization(ctx context.Context, ownerID uuid.UUID) *domain.Organization {
	f.t.Helper()

	org := &domain.Organization{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("Org %s", uuid.NewString()[:8]),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(f.t, f.memberships.SaveOrganization(ctx, org))
	return org
}

func (f *Fixtures) AddMember(ctx context.Context, orgID, userID uuid.UUID, role domain.MemberRole, status domain.MembershipStatus) {
	f.t.Helper()

	require.NoError(f.t, f.memberships.SaveMembership(ctx, &domain.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		Status:         status,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}))
}

// CreateElection seeds an election with its ballot and returns it as
// loaded back from the store.
func (f *Fixtures) CreateElection(ctx context.Context, orgID uuid.UUID, start, end time.Time, visibility domain.ResultVisibility, positions ...PositionFixture) *domain.Election {
	f.t.Helper()

	created := start.Add(-time.Hour).UTC()
	election := &domain.Election{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		Title:            fmt.Sprintf("Election %s", uuid.NewString()[:8]),
		StartAt:          start.UTC(),
		EndAt:            end.UTC(),
		ResultVisibility: visibility,
		CreatedAt:        created,
	}
	require.NoError(f.t, f.elections.Create(ctx, election))

	for i, spec := range positions {
		position := &domain.Position{
			ID:         uuid.New(),
			ElectionID: election.ID,
			Title:      spec.Title,
			OrderIndex: i,
			CreatedAt:  created,
		}
		require.NoError(f.t, f.elections.AddPosition(ctx, position))

		for j, name := range spec.Candidates {
			require.NoError(f.t, f.elections.AddCandidate(ctx, &domain.Candidate{
				ID:         uuid.New(),
				PositionID: position.ID,
				Name:       name,
				CreatedAt:  created.Add(time.Duration(j) * time.Millisecond),
			}))
		}
	}

	loaded, err := f.elections.GetByID(ctx, election.ID)
	require.NoError(f.t, err)
	return loaded
}

// CandidateID finds a seeded candidate by position title and name.
func CandidateID(t *testing.T, election *domain.Election, positionTitle, name string) (uuid.UUID, uuid.UUID) {
	t.Helper()

	for _, p := range election.Positions {
		if p.Title != positionTitle {
			continue
		}
		for _, c := range p.Candidates {
			if c.Name == name {
				return p.ID, c.ID
			}
		}
	}
	t.Fatalf("candidate %q of position %q not found", name, positionTitle)
	return uuid.Nil, uuid.Nil
}
