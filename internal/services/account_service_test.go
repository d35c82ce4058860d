package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blokid/blokid-backend/internal/auth"
)

func TestRegister_CreatesUserWithPersonalOrganization(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.accounts.Register(ctx, RegisterInput{Email: "  Alice@Example.com ", Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.HashedPassword)
	assert.NotEmpty(t, user.ID)

	orgs, err := env.orgs.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "alice@example.com's Organization", orgs[0].Name)
	require.NotNil(t, orgs[0].Description)
	assert.Equal(t, "Default organization", *orgs[0].Description)
	assert.Equal(t, user.ID, orgs[0].OwnerID)

	role, ok, err := env.eval.RoleInOrganization(ctx, user.ID, orgs[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, auth.RoleOrganizationAdmin, role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = env.accounts.Register(ctx, RegisterInput{Email: "ALICE@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Email already registered", Message(err))
}

func TestRegister_MissingFields(t *testing.T) {
	env := newTestEnv()

	_, err := env.accounts.Register(context.Background(), RegisterInput{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.accounts.Register(context.Background(), RegisterInput{Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_StoreError(t *testing.T) {
	env := newTestEnv()
	env.db.err = errors.New("connection reset")

	_, err := env.accounts.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "password123"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.register("alice@example.com")

	tok, err := env.accounts.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 60, tok.ExpiresIn)

	claims, err := env.tokens.Validate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email())
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.register("alice@example.com")

	_, err := env.accounts.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Incorrect email or password", Message(err))

	_, err = env.accounts.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv()
	user, _ := env.register("alice@example.com")
	deactivate(env, user.ID)

	_, err := env.accounts.Login(context.Background(), "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.register("alice@example.com")

	tok, err := env.tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)

	got, err := env.accounts.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticate_Rejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.register("alice@example.com")

	_, err := env.accounts.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ghost, err := env.tokens.Issue("user-999", "ghost@example.com")
	require.NoError(t, err)
	_, err = env.accounts.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	deactivate(env, user.ID)
	tok, err := env.tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)
	_, err = env.accounts.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func deactivate(env *testEnv, userID string) {
	env.db.mu.Lock()
	defer env.db.mu.Unlock()
	u := env.db.users[userID]
	u.IsActive = false
	env.db.users[userID] = u
}
