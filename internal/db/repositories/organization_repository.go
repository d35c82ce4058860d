// organization_repository.go implements OrganizationRepository, providing
// organization CRUD, the transactional create and cascade delete, and
// organization membership queries.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
)

const organizationColumns = `o.id, o.name, o.description, o.owner_id, o.created_at, o.updated_at`

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID retrieves an organization by ID. Returns (nil, nil) when absent.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.GetContext(ctx, &org, `SELECT `+organizationColumns+` FROM organizations o WHERE o.id = $1`, id)
	if err != nil {
		if isNoMatch(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// CreateWithAdmin inserts the organization and an ORGANIZATION_ADMIN membership
// for org.OwnerID in one transaction, returning the membership row.
func (r *OrganizationRepository) CreateWithAdmin(ctx context.Context, org *models.Organization) (*models.OrganizationMember, error) {
	member := &models.OrganizationMember{
		UserID: org.OwnerID,
		Role:   auth.RoleOrganizationAdmin,
	}
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertOrganization(ctx, tx, org); err != nil {
			return err
		}
		member.OrganizationID = org.ID
		return insertOrganizationMember(ctx, tx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Update writes name and description and stamps updated_at
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	now := time.Now()
	query := `
		UPDATE organizations
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, org.Name, org.Description, now, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}
	org.UpdatedAt = &now
	return nil
}

// Delete removes the organization with every dependent row: website members of
// its websites, the websites, its organization members, then the organization.
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		steps := []struct {
			what  string
			query string
		}{
			{"website members", `DELETE FROM website_members WHERE website_id IN (SELECT id FROM websites WHERE organization_id = $1)`},
			{"websites", `DELETE FROM websites WHERE organization_id = $1`},
			{"organization members", `DELETE FROM organization_members WHERE organization_id = $1`},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.what, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}
		return checkAffected(result)
	})
}

// ListForUser returns every organization the user has a membership row in
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	query := `
		SELECT ` + organizationColumns + `
		FROM organizations o
		INNER JOIN organization_members om ON om.organization_id = o.id
		WHERE om.user_id = $1
		ORDER BY o.created_at, o.id
	`
	orgs := []models.Organization{}
	if err := r.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user organizations: %w", err)
	}
	return orgs, nil
}

// === Organization Membership Operations ===

// GetMemberRole returns the user's role in the organization. ok is false when
// no membership row exists.
func (r *OrganizationRepository) GetMemberRole(ctx context.Context, userID, orgID string) (role auth.Role, ok bool, err error) {
	var value string
	err = r.db.GetContext(ctx, &value,
		`SELECT role FROM organization_members WHERE user_id = $1 AND organization_id = $2`,
		userID, orgID,
	)
	if err != nil {
		if isNoMatch(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get organization role: %w", err)
	}
	return auth.Role(value), true, nil
}

// AddMember inserts a membership row. An existing row for the same user and
// organization yields ErrDuplicate.
func (r *OrganizationRepository) AddMember(ctx context.Context, m *models.OrganizationMember) error {
	return insertOrganizationMember(ctx, r.db, m)
}

// ListMembers returns the organization's membership rows with member emails
func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMemberWithUser, error) {
	query := `
		SELECT om.id, om.user_id, om.organization_id, om.role, om.created_at, u.email AS user_email
		FROM organization_members om
		INNER JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = $1
		ORDER BY om.created_at, om.id
	`
	members := []models.OrganizationMemberWithUser{}
	if err := r.db.SelectContext(ctx, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return members, nil
}

// ListWithoutAdmin returns organizations that no longer have any
// ORGANIZATION_ADMIN member and so cannot be managed by anyone.
func (r *OrganizationRepository) ListWithoutAdmin(ctx context.Context) ([]models.Organization, error) {
	query := `
		SELECT ` + organizationColumns + `
		FROM organizations o
		WHERE NOT EXISTS (
			SELECT 1 FROM organization_members om
			WHERE om.organization_id = o.id AND om.role = $1
		)
		ORDER BY o.created_at, o.id
	`
	orgs := []models.Organization{}
	if err := r.db.SelectContext(ctx, &orgs, query, string(auth.RoleOrganizationAdmin)); err != nil {
		return nil, fmt.Errorf("failed to list organizations without admin: %w", err)
	}
	return orgs, nil
}
