// website_repository.go implements WebsiteRepository, providing website CRUD,
// the two website sources used to build a user's visible set, and website
// membership queries.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
)

const websiteColumns = `w.id, w.name, w.url, w.description, w.organization_id, w.created_at, w.updated_at`

// WebsiteRepository handles database operations for websites
type WebsiteRepository struct {
	db *sqlx.DB
}

// NewWebsiteRepository creates a new website repository
func NewWebsiteRepository(db *sqlx.DB) *WebsiteRepository {
	return &WebsiteRepository{db: db}
}

// GetByID retrieves a website by ID. Returns (nil, nil) when absent.
func (r *WebsiteRepository) GetByID(ctx context.Context, id string) (*models.Website, error) {
	var site models.Website
	err := r.db.GetContext(ctx, &site, `SELECT `+websiteColumns+` FROM websites w WHERE w.id = $1`, id)
	if err != nil {
		if isNoMatch(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	return &site, nil
}

// Create inserts the website and, when creator is non-nil, the creator's
// membership row in the same transaction. creator.WebsiteID is filled in.
func (r *WebsiteRepository) Create(ctx context.Context, site *models.Website, creator *models.WebsiteMember) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertWebsite(ctx, tx, site); err != nil {
			return err
		}
		if creator == nil {
			return nil
		}
		creator.WebsiteID = site.ID
		return insertWebsiteMember(ctx, tx, creator)
	})
}

// Update writes name, url, and description and stamps updated_at. The owning
// organization is never changed.
func (r *WebsiteRepository) Update(ctx context.Context, site *models.Website) error {
	now := time.Now()
	query := `
		UPDATE websites
		SET name = $1, url = $2, description = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, site.Name, site.URL, site.Description, now, site.ID)
	if err != nil {
		return fmt.Errorf("failed to update website: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}
	site.UpdatedAt = &now
	return nil
}

// Delete removes the website's members and then the website in one transaction
func (r *WebsiteRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM website_members WHERE website_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete website members: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM websites WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete website: %w", err)
		}
		return checkAffected(result)
	})
}

// ListByOrganization returns every website owned by the organization
func (r *WebsiteRepository) ListByOrganization(ctx context.Context, orgID string) ([]models.Website, error) {
	query := `
		SELECT ` + websiteColumns + `
		FROM websites w
		WHERE w.organization_id = $1
		ORDER BY w.created_at, w.id
	`
	sites := []models.Website{}
	if err := r.db.SelectContext(ctx, &sites, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list organization websites: %w", err)
	}
	return sites, nil
}

// ListInUserOrganizations returns websites owned by any organization the user
// is a member of
func (r *WebsiteRepository) ListInUserOrganizations(ctx context.Context, userID string) ([]models.Website, error) {
	query := `
		SELECT ` + websiteColumns + `
		FROM websites w
		INNER JOIN organization_members om ON om.organization_id = w.organization_id
		WHERE om.user_id = $1
		ORDER BY w.created_at, w.id
	`
	sites := []models.Website{}
	if err := r.db.SelectContext(ctx, &sites, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list websites in user organizations: %w", err)
	}
	return sites, nil
}

// ListWithDirectMembership returns websites the user holds a website_members row on
func (r *WebsiteRepository) ListWithDirectMembership(ctx context.Context, userID string) ([]models.Website, error) {
	query := `
		SELECT ` + websiteColumns + `
		FROM websites w
		INNER JOIN website_members wm ON wm.website_id = w.id
		WHERE wm.user_id = $1
		ORDER BY w.created_at, w.id
	`
	sites := []models.Website{}
	if err := r.db.SelectContext(ctx, &sites, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list directly shared websites: %w", err)
	}
	return sites, nil
}

// === Website Membership Operations ===

// GetMemberRole returns the user's role on the website. ok is false when no
// membership row exists.
func (r *WebsiteRepository) GetMemberRole(ctx context.Context, userID, websiteID string) (role auth.Role, ok bool, err error) {
	var value string
	err = r.db.GetContext(ctx, &value,
		`SELECT role FROM website_members WHERE user_id = $1 AND website_id = $2`,
		userID, websiteID,
	)
	if err != nil {
		if isNoMatch(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get website role: %w", err)
	}
	return auth.Role(value), true, nil
}

// AddMember inserts a membership row. An existing row for the same user and
// website yields ErrDuplicate.
func (r *WebsiteRepository) AddMember(ctx context.Context, m *models.WebsiteMember) error {
	return insertWebsiteMember(ctx, r.db, m)
}

// ListMembers returns the website's membership rows with member emails
func (r *WebsiteRepository) ListMembers(ctx context.Context, websiteID string) ([]models.WebsiteMemberWithUser, error) {
	query := `
		SELECT wm.id, wm.user_id, wm.website_id, wm.role, wm.created_at, u.email AS user_email
		FROM website_members wm
		INNER JOIN users u ON u.id = wm.user_id
		WHERE wm.website_id = $1
		ORDER BY wm.created_at, wm.id
	`
	members := []models.WebsiteMemberWithUser{}
	if err := r.db.SelectContext(ctx, &members, query, websiteID); err != nil {
		return nil, fmt.Errorf("failed to list website members: %w", err)
	}
	return members, nil
}
