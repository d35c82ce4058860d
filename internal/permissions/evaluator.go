// Package permissions decides whether a user may act on an organization or a
// website. The Evaluator is a pure decision function over persisted membership
// rows: it keeps no state between calls and consults the store every time, so a
// membership written by one request is visible to the next.
//
// Organization privilege dominates website privilege. Website predicates first
// check the user's role in the website's owning organization and consult the
// website membership only when that check fails.
package permissions

import (
	"context"
	"fmt"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/telemetry"
)

// Predicate names, used as the metric label for each decision.
const (
	PredicateManageOrganization = "can_manage_organization"
	PredicateReadOrganization   = "can_read_organization"
	PredicateUpdateOrganization = "can_update_organization"
	PredicateCreateWebsiteInOrg = "can_create_website_in_organization"
	PredicateManageWebsite      = "can_manage_website"
	PredicateReadWebsite        = "can_read_website"
	PredicateUpdateWebsite      = "can_update_website"
)

// OrganizationStore is the slice of the organization repository the evaluator reads.
type OrganizationStore interface {
	GetMemberRole(ctx context.Context, userID, orgID string) (auth.Role, bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Organization, error)
}

// WebsiteStore is the slice of the website repository the evaluator reads.
type WebsiteStore interface {
	GetByID(ctx context.Context, id string) (*models.Website, error)
	GetMemberRole(ctx context.Context, userID, websiteID string) (auth.Role, bool, error)
	ListInUserOrganizations(ctx context.Context, userID string) ([]models.Website, error)
	ListWithDirectMembership(ctx context.Context, userID string) ([]models.Website, error)
}

// Evaluator answers authorization questions. It is safe for concurrent use.
type Evaluator struct {
	orgs  OrganizationStore
	sites WebsiteStore
}

// NewEvaluator creates an evaluator over the given stores
func NewEvaluator(orgs OrganizationStore, sites WebsiteStore) *Evaluator {
	return &Evaluator{orgs: orgs, sites: sites}
}

// RoleInOrganization returns the user's role in the organization. ok is false
// when the user has no membership row; absence is never an error.
func (e *Evaluator) RoleInOrganization(ctx context.Context, userID, orgID string) (role auth.Role, ok bool, err error) {
	role, ok, err = e.orgs.GetMemberRole(ctx, userID, orgID)
	if err != nil {
		return "", false, fmt.Errorf("organization role lookup: %w", err)
	}
	return role, ok, nil
}

// RoleInWebsite returns the user's direct role on the website. ok is false
// when the user has no website membership row.
func (e *Evaluator) RoleInWebsite(ctx context.Context, userID, websiteID string) (role auth.Role, ok bool, err error) {
	role, ok, err = e.sites.GetMemberRole(ctx, userID, websiteID)
	if err != nil {
		return "", false, fmt.Errorf("website role lookup: %w", err)
	}
	return role, ok, nil
}

// === Organization scope ===

// CanManageOrganization is true only for ORGANIZATION_ADMIN.
func (e *Evaluator) CanManageOrganization(ctx context.Context, userID, orgID string) (bool, error) {
	allowed, err := e.orgRoleIn(ctx, userID, orgID, auth.RoleOrganizationAdmin)
	return record(PredicateManageOrganization, allowed, err)
}

// CanReadOrganization is true for either organization role.
func (e *Evaluator) CanReadOrganization(ctx context.Context, userID, orgID string) (bool, error) {
	allowed, err := e.orgRoleIn(ctx, userID, orgID, auth.RoleOrganizationAdmin, auth.RoleOrganizationUser)
	return record(PredicateReadOrganization, allowed, err)
}

// CanUpdateOrganization is true for either organization role.
func (e *Evaluator) CanUpdateOrganization(ctx context.Context, userID, orgID string) (bool, error) {
	allowed, err := e.orgRoleIn(ctx, userID, orgID, auth.RoleOrganizationAdmin, auth.RoleOrganizationUser)
	return record(PredicateUpdateOrganization, allowed, err)
}

// CanCreateWebsiteInOrganization is true for either organization role.
func (e *Evaluator) CanCreateWebsiteInOrganization(ctx context.Context, userID, orgID string) (bool, error) {
	allowed, err := e.orgRoleIn(ctx, userID, orgID, auth.RoleOrganizationAdmin, auth.RoleOrganizationUser)
	return record(PredicateCreateWebsiteInOrg, allowed, err)
}

// === Website scope ===

// CanManageWebsite is true for an ORGANIZATION_ADMIN of the owning organization
// or a WEBSITE_ADMIN of the website.
func (e *Evaluator) CanManageWebsite(ctx context.Context, userID, websiteID string) (bool, error) {
	allowed, err := e.websiteCheck(ctx, userID, websiteID,
		[]auth.Role{auth.RoleOrganizationAdmin},
		[]auth.Role{auth.RoleWebsiteAdmin},
	)
	return record(PredicateManageWebsite, allowed, err)
}

// CanReadWebsite is true for any member of the owning organization or any
// direct member of the website.
func (e *Evaluator) CanReadWebsite(ctx context.Context, userID, websiteID string) (bool, error) {
	allowed, err := e.websiteCheck(ctx, userID, websiteID,
		[]auth.Role{auth.RoleOrganizationAdmin, auth.RoleOrganizationUser},
		[]auth.Role{auth.RoleWebsiteAdmin, auth.RoleWebsiteUser},
	)
	return record(PredicateReadWebsite, allowed, err)
}

// CanUpdateWebsite is true for an ORGANIZATION_ADMIN of the owning organization
// or any direct member of the website. An ORGANIZATION_USER without a website
// role may read the website but not update it.
func (e *Evaluator) CanUpdateWebsite(ctx context.Context, userID, websiteID string) (bool, error) {
	allowed, err := e.websiteCheck(ctx, userID, websiteID,
		[]auth.Role{auth.RoleOrganizationAdmin},
		[]auth.Role{auth.RoleWebsiteAdmin, auth.RoleWebsiteUser},
	)
	return record(PredicateUpdateWebsite, allowed, err)
}

// === Aggregates ===

// OrganizationsForUser returns every organization the user holds a membership in.
func (e *Evaluator) OrganizationsForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	orgs, err := e.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations for user: %w", err)
	}
	return orgs, nil
}

// WebsitesForUser returns the union of websites in the user's organizations and
// websites shared with the user directly, each website at most once.
func (e *Evaluator) WebsitesForUser(ctx context.Context, userID string) ([]models.Website, error) {
	viaOrg, err := e.sites.ListInUserOrganizations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list websites via organizations: %w", err)
	}
	direct, err := e.sites.ListWithDirectMembership(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list directly shared websites: %w", err)
	}

	seen := make(map[string]struct{}, len(viaOrg)+len(direct))
	out := make([]models.Website, 0, len(viaOrg)+len(direct))
	for _, group := range [][]models.Website{viaOrg, direct} {
		for _, site := range group {
			if _, dup := seen[site.ID]; dup {
				continue
			}
			seen[site.ID] = struct{}{}
			out = append(out, site)
		}
	}
	return out, nil
}

// orgRoleIn reports whether the user's organization role is one of allowed.
func (e *Evaluator) orgRoleIn(ctx context.Context, userID, orgID string, allowed ...auth.Role) (bool, error) {
	role, ok, err := e.RoleInOrganization(ctx, userID, orgID)
	if err != nil || !ok {
		return false, err
	}
	return roleIn(role, allowed), nil
}

// websiteCheck resolves the website's organization, checks orgRoles there, and
// falls back to the direct website role. A missing website is a plain denial.
func (e *Evaluator) websiteCheck(ctx context.Context, userID, websiteID string, orgRoles, siteRoles []auth.Role) (bool, error) {
	site, err := e.sites.GetByID(ctx, websiteID)
	if err != nil {
		return false, fmt.Errorf("website lookup: %w", err)
	}
	if site == nil {
		return false, nil
	}

	allowed, err := e.orgRoleIn(ctx, userID, site.OrganizationID, orgRoles...)
	if err != nil || allowed {
		return allowed, err
	}

	role, ok, err := e.RoleInWebsite(ctx, userID, websiteID)
	if err != nil || !ok {
		return false, err
	}
	return roleIn(role, siteRoles), nil
}

func roleIn(role auth.Role, set []auth.Role) bool {
	for _, r := range set {
		if role == r {
			return true
		}
	}
	return false
}

// record counts a reached decision and passes the result through. Errors are
// returned as a denial and are not counted.
func record(predicate string, allowed bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	telemetry.AuthzDecisionsTotal.WithLabelValues(predicate, telemetry.Decision(allowed)).Inc()
	return allowed, nil
}
