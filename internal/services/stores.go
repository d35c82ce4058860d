package services

import (
	"context"

	"github.com/blokid/blokid-backend/internal/db/models"
)

// UserStore is the user persistence the services need.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUserWithOrganization(ctx context.Context, user *models.User, org *models.Organization) error
}

// OrganizationStore is the organization persistence the services need.
type OrganizationStore interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	CreateWithAdmin(ctx context.Context, org *models.Organization) (*models.OrganizationMember, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, m *models.OrganizationMember) error
	ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMemberWithUser, error)
}

// WebsiteStore is the website persistence the services need.
type WebsiteStore interface {
	GetByID(ctx context.Context, id string) (*models.Website, error)
	Create(ctx context.Context, site *models.Website, creator *models.WebsiteMember) error
	Update(ctx context.Context, site *models.Website) error
	Delete(ctx context.Context, id string) error
	ListByOrganization(ctx context.Context, orgID string) ([]models.Website, error)
	AddMember(ctx context.Context, m *models.WebsiteMember) error
	ListMembers(ctx context.Context, websiteID string) ([]models.WebsiteMemberWithUser, error)
}
