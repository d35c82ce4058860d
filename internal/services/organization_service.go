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

// OrganizationCreate is the payload for creating an organization.
type OrganizationCreate struct {
	Name        string
	Description *string
}

// OrganizationUpdate carries the fields to change. A nil Name and an unset
// Description are left as they are; a set Description with a nil Value clears it.
type OrganizationUpdate struct {
	Name        *string
	Description NullableString
}

// InviteInput names an existing user by email and the role to grant.
type InviteInput struct {
	Email string
	Role  auth.Role
}

// OrganizationService implements organization operations
type OrganizationService struct {
	orgs     OrganizationStore
	users    UserStore
	eval     *permissions.Evaluator
	notifier notify.Notifier
}

// NewOrganizationService creates an organization service. A nil notifier
// disables invitation emails.
func NewOrganizationService(orgs OrganizationStore, users UserStore, eval *permissions.Evaluator, notifier notify.Notifier) *OrganizationService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &OrganizationService{orgs: orgs, users: users, eval: eval, notifier: notifier}
}

// Create makes a new organization owned by actor, with actor as its admin.
func (s *OrganizationService) Create(ctx context.Context, actor *models.User, in OrganizationCreate) (*models.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "Organization name is required")
	}

	org := &models.Organization{
		Name:        name,
		Description: in.Description,
		OwnerID:     actor.ID,
	}
	if _, err := s.orgs.CreateWithAdmin(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	slog.Info("organization created", "organization_id", org.ID, "user_id", actor.ID)
	return org, nil
}

// Get returns an organization the actor can read.
func (s *OrganizationService) Get(ctx context.Context, actor *models.User, id string) (*models.Organization, error) {
	if err := authorize(ctx, s.eval.CanReadOrganization, actor, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListForUser returns the organizations the actor is a member of
func (s *OrganizationService) ListForUser(ctx context.Context, actor *models.User) ([]models.Organization, error) {
	return s.eval.OrganizationsForUser(ctx, actor.ID)
}

// Update applies the fields present in in.
func (s *OrganizationService) Update(ctx context.Context, actor *models.User, id string, in OrganizationUpdate) (*models.Organization, error) {
	if err := authorize(ctx, s.eval.CanUpdateOrganization, actor, id); err != nil {
		return nil, err
	}
	org, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, newError(ErrInvalidInput, "Organization name cannot be empty")
		}
		org.Name = name
	}
	if in.Description.Set {
		org.Description = in.Description.Value
	}

	if err := s.orgs.Update(ctx, org); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, organizationNotFound()
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// Delete removes the organization along with its websites and every membership
// row that references either.
func (s *OrganizationService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := authorize(ctx, s.eval.CanManageOrganization, actor, id); err != nil {
		return err
	}
	if err := s.orgs.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return organizationNotFound()
		}
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	slog.Info("organization deleted", "organization_id", id, "user_id", actor.ID)
	return nil
}

// Invite grants an existing user a role in the organization. The grant is
// effective immediately.
func (s *OrganizationService) Invite(ctx context.Context, actor *models.User, id string, in InviteInput) (member *models.OrganizationMember, err error) {
	defer func() { countInvite(auth.ScopeOrganization, err) }()

	if err := authorize(ctx, s.eval.CanManageOrganization, actor, id); err != nil {
		return nil, err
	}
	if !in.Role.IsOrganizationRole() {
		return nil, newError(ErrInvalidRole, "Role %q cannot be granted on an organization", in.Role)
	}
	org, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	invitee, err := lookupInvitee(ctx, s.users, in.Email)
	if err != nil {
		return nil, err
	}
	if _, exists, err := s.eval.RoleInOrganization(ctx, invitee.ID, id); err != nil {
		return nil, err
	} else if exists {
		return nil, alreadyMember()
	}

	member = &models.OrganizationMember{
		UserID:         invitee.ID,
		OrganizationID: id,
		Role:           in.Role,
	}
	if err := s.orgs.AddMember(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, alreadyMember()
		}
		return nil, fmt.Errorf("failed to add organization member: %w", err)
	}

	slog.Info("organization member added",
		"organization_id", id,
		"user_id", invitee.ID,
		"role", in.Role,
		"invited_by", actor.ID)
	s.notifier.NotifyInvitation(ctx, notify.Invitation{
		Email:        invitee.Email,
		InviterEmail: actor.Email,
		ResourceKind: auth.ScopeOrganization,
		ResourceID:   org.ID,
		ResourceName: org.Name,
		Role:         in.Role,
	})
	return member, nil
}

// ListMembers returns the organization's members with their emails
func (s *OrganizationService) ListMembers(ctx context.Context, actor *models.User, id string) ([]models.OrganizationMemberWithUser, error) {
	if err := authorize(ctx, s.eval.CanReadOrganization, actor, id); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.orgs.ListMembers(ctx, id)
}

func (s *OrganizationService) load(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, organizationNotFound()
	}
	return org, nil
}

func organizationNotFound() error {
	return newError(ErrNotFound, "Organization not found")
}
