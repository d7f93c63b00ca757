package domain

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberRole string

const (
	MemberRoleAdmin MemberRole = "admin"
	MemberRoleVoter MemberRole = "voter"
)

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"
)

type Membership struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Role           MemberRole       `json:"role"`
	Status         MembershipStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Role is what a requester is relative to one election.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleVoter Role = "voter"
	RoleGuest Role = "guest"
)

// Requester is the authenticated caller as seen by the core services.
type Requester struct {
	UserID     uuid.UUID
	SuperAdmin bool
}
