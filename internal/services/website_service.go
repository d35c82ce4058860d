package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/db/repositories"
	"github.com/blokid/blokid-backend/internal/notify"
	"github.com/blokid/blokid-backend/internal/permissions"
)

// WebsiteCreate is the payload for creating a website inside an organization.
type WebsiteCreate struct {
	Name           string
	URL            string
	Description    *string
	OrganizationID string
}

// WebsiteUpdate carries the fields to change. The owning organization is fixed.
// Nil Name and URL are left as they are; Description follows NullableString.
type WebsiteUpdate struct {
	Name        *string
	URL         *string
	Description NullableString
}

// WebsiteService implements website operations
type WebsiteService struct {
	sites    WebsiteStore
	orgs     OrganizationStore
	users    UserStore
	eval     *permissions.Evaluator
	notifier notify.Notifier
}

// NewWebsiteService creates a website service. A nil notifier disables
// invitation emails.
func NewWebsiteService(sites WebsiteStore, orgs OrganizationStore, users UserStore, eval *permissions.Evaluator, notifier notify.Notifier) *WebsiteService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &WebsiteService{sites: sites, orgs: orgs, users: users, eval: eval, notifier: notifier}
}

// Create adds a website to an organization the actor belongs to. The actor gets
// a WEBSITE_ADMIN row only when no organization role already covers the site.
func (s *WebsiteService) Create(ctx context.Context, actor *models.User, in WebsiteCreate) (*models.Website, error) {
	if err := authorize(ctx, s.eval.CanCreateWebsiteInOrganization, actor, in.OrganizationID); err != nil {
		return nil, err
	}

	name, url := strings.TrimSpace(in.Name), strings.TrimSpace(in.URL)
	if name == "" || url == "" {
		return nil, newError(ErrInvalidInput, "Website name and url are required")
	}

	org, err := s.orgs.GetByID(ctx, in.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, organizationNotFound()
	}

	_, hasOrgRole, err := s.eval.RoleInOrganization(ctx, actor.ID, org.ID)
	if err != nil {
		return nil, err
	}
	var creator *models.WebsiteMember
	if !hasOrgRole {
		creator = &models.WebsiteMember{UserID: actor.ID, Role: auth.RoleWebsiteAdmin}
	}

	site := &models.Website{
		Name:           name,
		URL:            url,
		Description:    in.Description,
		OrganizationID: org.ID,
	}
	if err := s.sites.Create(ctx, site, creator); err != nil {
		return nil, fmt.Errorf("failed to create website: %w", err)
	}

	slog.Info("website created", "website_id", site.ID, "organization_id", org.ID, "user_id", actor.ID)
	return site, nil
}

// Get returns a website the actor can read.
func (s *WebsiteService) Get(ctx context.Context, actor *models.User, id string) (*models.Website, error) {
	if err := authorize(ctx, s.eval.CanReadWebsite, actor, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListForUser returns every website the actor can reach, through an
// organization or directly.
func (s *WebsiteService) ListForUser(ctx context.Context, actor *models.User) ([]models.Website, error) {
	return s.eval.WebsitesForUser(ctx, actor.ID)
}

// ListByOrganization returns the websites of an organization the actor can read
func (s *WebsiteService) ListByOrganization(ctx context.Context, actor *models.User, orgID string) ([]models.Website, error) {
	if err := authorize(ctx, s.eval.CanReadOrganization, actor, orgID); err != nil {
		return nil, err
	}
	sites, err := s.sites.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}
	return sites, nil
}

// Update applies the fields present in in.
func (s *WebsiteService) Update(ctx context.Context, actor *models.User, id string, in WebsiteUpdate) (*models.Website, error) {
	if err := authorize(ctx, s.eval.CanUpdateWebsite, actor, id); err != nil {
		return nil, err
	}
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, newError(ErrInvalidInput, "Website name cannot be empty")
		}
		site.Name = name
	}
	if in.URL != nil {
		url := strings.TrimSpace(*in.URL)
		if url == "" {
			return nil, newError(ErrInvalidInput, "Website url cannot be empty")
		}
		site.URL = url
	}
	if in.Description.Set {
		site.Description = in.Description.Value
	}

	if err := s.sites.Update(ctx, site); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, websiteNotFound()
		}
		return nil, fmt.Errorf("failed to update website: %w", err)
	}
	return site, nil
}

// Delete removes the website and its membership rows.
func (s *WebsiteService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := authorize(ctx, s.eval.CanManageWebsite, actor, id); err != nil {
		return err
	}
	if err := s.sites.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return websiteNotFound()
		}
		return fmt.Errorf("failed to delete website: %w", err)
	}

	slog.Info("website deleted", "website_id", id, "user_id", actor.ID)
	return nil
}

// Invite grants an existing user a website role. The grant is effective
// immediately.
func (s *WebsiteService) Invite(ctx context.Context, actor *models.User, id string, in InviteInput) (member *models.WebsiteMember, err error) {
	defer func() { countInvite(auth.ScopeWebsite, err) }()

	if err := authorize(ctx, s.eval.CanManageWebsite, actor, id); err != nil {
		return nil, err
	}
	if !in.Role.IsWebsiteRole() {
		return nil, newError(ErrInvalidRole, "Role %q cannot be granted on a website", in.Role)
	}
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	invitee, err := lookupInvitee(ctx, s.users, in.Email)
	if err != nil {
		return nil, err
	}
	if _, exists, err := s.eval.RoleInWebsite(ctx, invitee.ID, id); err != nil {
		return nil, err
	} else if exists {
		return nil, alreadyMember()
	}

	member = &models.WebsiteMember{
		UserID:    invitee.ID,
		WebsiteID: id,
		Role:      in.Role,
	}
	if err := s.sites.AddMember(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, alreadyMember()
		}
		return nil, fmt.Errorf("failed to add website member: %w", err)
	}

	slog.Info("website member added",
		"website_id", id,
		"user_id", invitee.ID,
		"role", in.Role,
		"invited_by", actor.ID)
	s.notifier.NotifyInvitation(ctx, notify.Invitation{
		Email:        invitee.Email,
		InviterEmail: actor.Email,
		ResourceKind: auth.ScopeWebsite,
		ResourceID:   site.ID,
		ResourceName: site.Name,
		Role:         in.Role,
	})
	return member, nil
}

// ListMembers returns the website's direct members with their emails.
// Organization members who reach the site through domination are not listed.
func (s *WebsiteService) ListMembers(ctx context.Context, actor *models.User, id string) ([]models.WebsiteMemberWithUser, error) {
	if err := authorize(ctx, s.eval.CanReadWebsite, actor, id); err != nil {
		return nil, err
	}
	return s.sites.ListMembers(ctx, id)
}

func (s *WebsiteService) load(ctx context.Context, id string) (*models.Website, error) {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	if site == nil {
		return nil, websiteNotFound()
	}
	return site, nil
}

func websiteNotFound() error {
	return newError(ErrNotFound, "Website not found")
}
