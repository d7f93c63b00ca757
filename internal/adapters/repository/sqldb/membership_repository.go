package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type membershipRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewMembershipRepository(store *Store) ports.MembershipRepository {
	return &membershipRepository{
		db:      store.db,
		dialect: store.dialect,
	}
}

func (r *membershipRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	query := `SELECT id, name, owner_id, created_at FROM organizations WHERE id = $1`

	var org domain.Organization
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), id).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, unavailable("failed to get organization", err)
	}
	return &org, nil
}

func (r *membershipRepository) GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT organization_id, user_id, role, status, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`

	var m domain.Membership
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), organizationID, userID).Scan(
		&m.OrganizationID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("failed to get membership", err)
	}
	return &m, nil
}

func (r *membershipRepository) CountApproved(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM organization_members WHERE organization_id = $1 AND status = $2`

	var count int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), organizationID, domain.MembershipApproved).Scan(&count)
	if err != nil {
		return 0, unavailable("failed to count members", err)
	}
	return count, nil
}

func (r *membershipRepository) SaveOrganization(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id
	`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query), org.ID, org.Name, org.OwnerID, org.CreatedAt)
	if err != nil {
		return unavailable("failed to save organization", err)
	}
	return nil
}

func (r *membershipRepository) SaveMembership(ctx context.Context, membership *domain.Membership) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role, status = EXCLUDED.status
	`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		membership.OrganizationID, membership.UserID, membership.Role, membership.Status, membership.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrOrganizationNotFound
		}
		return unavailable("failed to save membership", err)
	}
	return nil
}
