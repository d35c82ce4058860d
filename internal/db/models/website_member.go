package models

import (
	"time"

	"github.com/blokid/blokid-backend/internal/auth"
)

// WebsiteMember grants Role on one website to one user. At most one row exists
// per (user, website); Role is always a website role.
type WebsiteMember struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	WebsiteID string    `db:"website_id" json:"website_id"`
	Role      auth.Role `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WebsiteMemberWithUser includes the member's email for display
type WebsiteMemberWithUser struct {
	WebsiteMember
	UserEmail string `db:"user_email" json:"user_email"`
}
