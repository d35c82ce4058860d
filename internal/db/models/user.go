// Package models defines the persisted entities of the access-control backend:
// users, organizations, websites, and the two membership tables that bind them.
// Structs carry db tags for sqlx scanning and json tags for API responses.
package models

import "time"

// User represents an account. Users are never hard-deleted; IsActive gates login
// and every authenticated request.
type User struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	IsVerified     bool       `db:"is_verified" json:"is_verified"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at"`
}
