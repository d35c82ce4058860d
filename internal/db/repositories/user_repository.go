// user_repository.go implements UserRepository, providing the lookup by email
// and the atomic registration insert.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
)

const userColumns = `id, email, hashed_password, is_active, is_verified, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// CreateUserWithOrganization inserts the user, their default organization, and
// the user's ORGANIZATION_ADMIN membership in one transaction. org.OwnerID is
// set to the new user's ID.
func (r *UserRepository) CreateUserWithOrganization(ctx context.Context, user *models.User, org *models.Organization) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		org.OwnerID = user.ID
		if err := insertOrganization(ctx, tx, org); err != nil {
			return err
		}
		return insertOrganizationMember(ctx, tx, &models.OrganizationMember{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           auth.RoleOrganizationAdmin,
		})
	})
}
