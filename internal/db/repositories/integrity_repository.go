package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
)

// IntegrityReport summarises membership data that the schema constraints cannot
// rule out on their own.
type IntegrityReport struct {
	Users         int64 `db:"users" json:"users"`
	Organizations int64 `db:"organizations" json:"organizations"`
	Websites      int64 `db:"websites" json:"websites"`
	// InactiveMemberships counts membership rows held by deactivated users.
	InactiveMemberships int64 `db:"inactive_memberships" json:"inactive_memberships"`
	// UnreachableWebsites counts websites whose organization has no members and
	// which have no direct members either.
	UnreachableWebsites int64 `db:"unreachable_websites" json:"unreachable_websites"`
	// OutOfScopeRoles counts membership rows whose role belongs to the other
	// resource kind, e.g. website_admin on an organization_members row.
	OutOfScopeRoles int64 `db:"out_of_scope_roles" json:"out_of_scope_roles"`
	// OrphanedMemberships counts membership rows whose user or resource no
	// longer exists.
	OrphanedMemberships int64 `db:"orphaned_memberships" json:"orphaned_memberships"`
	// OrphanedWebsites counts websites whose organization no longer exists.
	OrphanedWebsites int64 `db:"orphaned_websites" json:"orphaned_websites"`

	OrganizationsWithoutAdmin []models.Organization `db:"-" json:"organizations_without_admin"`
}

// Healthy reports whether the report found nothing to repair.
func (r *IntegrityReport) Healthy() bool {
	return len(r.OrganizationsWithoutAdmin) == 0 &&
		r.UnreachableWebsites == 0 &&
		r.OutOfScopeRoles == 0 &&
		r.OrphanedMemberships == 0 &&
		r.OrphanedWebsites == 0
}

// IntegrityRepository runs read-only consistency queries across the membership tables.
type IntegrityRepository struct {
	db   *sqlx.DB
	orgs *OrganizationRepository
}

// NewIntegrityRepository creates an integrity repository
func NewIntegrityRepository(db *sqlx.DB) *IntegrityRepository {
	return &IntegrityRepository{db: db, orgs: NewOrganizationRepository(db)}
}

// Report collects counts, the anomaly tallies, and the organizations left
// without an admin.
func (r *IntegrityRepository) Report(ctx context.Context) (*IntegrityReport, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM organizations) AS organizations,
			(SELECT COUNT(*) FROM websites) AS websites,
			(SELECT COUNT(*) FROM organization_members om JOIN users u ON u.id = om.user_id WHERE NOT u.is_active)
				+ (SELECT COUNT(*) FROM website_members wm JOIN users u ON u.id = wm.user_id WHERE NOT u.is_active)
				AS inactive_memberships,
			(SELECT COUNT(*) FROM websites w
				WHERE NOT EXISTS (SELECT 1 FROM organization_members om WHERE om.organization_id = w.organization_id)
				AND NOT EXISTS (SELECT 1 FROM website_members wm WHERE wm.website_id = w.id)
			) AS unreachable_websites,
			(SELECT COUNT(*) FROM organization_members WHERE role NOT IN ($1, $2))
				+ (SELECT COUNT(*) FROM website_members WHERE role NOT IN ($3, $4))
				AS out_of_scope_roles,
			(SELECT COUNT(*) FROM organization_members om
				LEFT JOIN users u ON u.id = om.user_id
				LEFT JOIN organizations o ON o.id = om.organization_id
				WHERE u.id IS NULL OR o.id IS NULL)
				+ (SELECT COUNT(*) FROM website_members wm
				LEFT JOIN users u ON u.id = wm.user_id
				LEFT JOIN websites w ON w.id = wm.website_id
				WHERE u.id IS NULL OR w.id IS NULL)
				AS orphaned_memberships,
			(SELECT COUNT(*) FROM websites w
				LEFT JOIN organizations o ON o.id = w.organization_id
				WHERE o.id IS NULL
			) AS orphaned_websites
	`
	var report IntegrityReport
	err := r.db.GetContext(ctx, &report, query,
		auth.RoleOrganizationAdmin, auth.RoleOrganizationUser,
		auth.RoleWebsiteAdmin, auth.RoleWebsiteUser)
	if err != nil {
		return nil, fmt.Errorf("failed to collect integrity counts: %w", err)
	}

	orphans, err := r.orgs.ListWithoutAdmin(ctx)
	if err != nil {
		return nil, err
	}
	report.OrganizationsWithoutAdmin = orphans
	return &report, nil
}
