package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type membershipRepository struct {
	organizations *mongo.Collection
	memberships   *mongo.Collection
}

func NewMembershipRepository(store *Store) ports.MembershipRepository {
	return &membershipRepository{
		organizations: store.db.Collection(organizationsCollection),
		memberships:   store.db.Collection(membershipsCollection),
	}
}

func (r *membershipRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var doc organizationDoc
	if err := r.organizations.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, unavailable("failed to get organization", err)
	}
	ownerID, err := uuid.Parse(doc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", doc.OwnerID, err)
	}
	return &domain.Organization{
		ID:        id,
		Name:      doc.Name,
		OwnerID:   ownerID,
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

func (r *membershipRepository) GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*domain.Membership, error) {
	filter := bson.M{"organization_id": organizationID.String(), "user_id": userID.String()}

	var doc membershipDoc
	if err := r.memberships.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, unavailable("failed to get membership", err)
	}
	return &domain.Membership{
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           domain.MemberRole(doc.Role),
		Status:         domain.MembershipStatus(doc.Status),
		CreatedAt:      doc.CreatedAt.UTC(),
	}, nil
}

func (r *membershipRepository) CountApproved(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	n, err := r.memberships.CountDocuments(ctx, bson.M{
		"organization_id": organizationID.String(),
		"status":          string(domain.MembershipApproved),
	})
	if err != nil {
		return 0, unavailable("failed to count members", err)
	}
	return n, nil
}

func (r *membershipRepository) SaveOrganization(ctx context.Context, org *domain.Organization) error {
	doc := organizationDoc{
		ID:        org.ID.String(),
		Name:      org.Name,
		OwnerID:   org.OwnerID.String(),
		CreatedAt: org.CreatedAt,
	}
	_, err := r.organizations.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable("failed to save organization", err)
	}
	return nil
}

func (r *membershipRepository) SaveMembership(ctx context.Context, membership *domain.Membership) error {
	doc := membershipDoc{
		OrganizationID: membership.OrganizationID.String(),
		UserID:         membership.UserID.String(),
		Role:           string(membership.Role),
		Status:         string(membership.Status),
		CreatedAt:      membership.CreatedAt,
	}
	filter := bson.M{"organization_id": doc.OrganizationID, "user_id": doc.UserID}
	_, err := r.memberships.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable("failed to save membership", err)
	}
	return nil
}
