package models

import "time"

// Organization is a tenant. OwnerID records who created it and is never
// changed; it grants nothing on its own. Access flows only through
// organization_members rows.
type Organization struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	OwnerID     string     `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at"`
}
