package models

import "time"

// Website is a resource owned by exactly one organization for its whole life.
type Website struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	URL            string     `db:"url" json:"url"`
	Description    *string    `db:"description" json:"description"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at"`
}
