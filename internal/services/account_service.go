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
	"github.com/blokid/blokid-backend/internal/telemetry"
)

const defaultOrganizationDescription = "Default organization"

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email    string
	Password string
}

// Token is an issued bearer credential.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccountService registers users, logs them in, and resolves bearer tokens.
type AccountService struct {
	users  UserStore
	hasher *auth.Hasher
	tokens *auth.TokenIssuer
}

// NewAccountService creates an account service
func NewAccountService(users UserStore, hasher *auth.Hasher, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates the user together with a personal organization in which the
// user is ORGANIZATION_ADMIN. All three rows commit or none do.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, newError(ErrInvalidInput, "Email and password are required")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, newError(ErrConflict, "Email already registered")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
	}
	org := &models.Organization{
		Name:        fmt.Sprintf("%s's Organization", email),
		Description: stringPtr(defaultOrganizationDescription),
	}
	if err := s.users.CreateUserWithOrganization(ctx, user, org); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, "Email already registered")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	telemetry.RegistrationsTotal.Inc()
	slog.Info("user registered", "user_id", user.ID, "organization_id", org.ID)
	return user, nil
}

// Login checks the credentials and issues an access token whose subject is the
// user's email.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !s.hasher.Verify(user.HashedPassword, password) {
		telemetry.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, newError(ErrInvalidCredentials, "Incorrect email or password")
	}
	if !user.IsActive {
		telemetry.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, newError(ErrInactiveUser, "Inactive user")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return &Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "Could not validate credentials")
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Email())
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, newError(ErrUnauthenticated, "Could not validate credentials")
	}
	if !user.IsActive {
		return nil, newError(ErrInactiveUser, "Inactive user")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func stringPtr(s string) *string { return &s }
