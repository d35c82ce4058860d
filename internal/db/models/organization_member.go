package models

import (
	"time"

	"github.com/blokid/blokid-backend/internal/auth"
)

// OrganizationMember grants Role on one organization to one user. At most one
// row exists per (user, organization); Role is always an organization role.
type OrganizationMember struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Role           auth.Role `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OrganizationMemberWithUser includes the member's email for display
type OrganizationMemberWithUser struct {
	OrganizationMember
	UserEmail string `db:"user_email" json:"user_email"`
}
