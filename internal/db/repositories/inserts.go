package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/db/models"
)

// The insert helpers accept sqlx.ExtContext so the same statement runs against
// the pool or inside a transaction. Each assigns the ID and creation time.

func insertUser(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (id, email, hashed_password, is_active, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.HashedPassword,
		user.IsActive,
		user.IsVerified,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func insertOrganization(ctx context.Context, q sqlx.ExtContext, org *models.Organization) error {
	org.ID = uuid.New().String()
	org.CreatedAt = time.Now()

	query := `
		INSERT INTO organizations (id, name, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := q.ExecContext(ctx, query, org.ID, org.Name, org.Description, org.OwnerID, org.CreatedAt); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func insertWebsite(ctx context.Context, q sqlx.ExtContext, site *models.Website) error {
	site.ID = uuid.New().String()
	site.CreatedAt = time.Now()

	query := `
		INSERT INTO websites (id, name, url, description, organization_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := q.ExecContext(ctx, query, site.ID, site.Name, site.URL, site.Description, site.OrganizationID, site.CreatedAt); err != nil {
		return fmt.Errorf("failed to create website: %w", err)
	}
	return nil
}

func insertOrganizationMember(ctx context.Context, q sqlx.ExtContext, m *models.OrganizationMember) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()

	query := `
		INSERT INTO organization_members (id, user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := q.ExecContext(ctx, query, m.ID, m.UserID, m.OrganizationID, string(m.Role), m.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("organization member: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to add organization member: %w", err)
	}
	return nil
}

func insertWebsiteMember(ctx context.Context, q sqlx.ExtContext, m *models.WebsiteMember) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()

	query := `
		INSERT INTO website_members (id, user_id, website_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := q.ExecContext(ctx, query, m.ID, m.UserID, m.WebsiteID, string(m.Role), m.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("website member: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to add website member: %w", err)
	}
	return nil
}
