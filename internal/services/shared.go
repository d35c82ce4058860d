package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/telemetry"
)

// checkFunc is the shape of every permission evaluator predicate.
type checkFunc func(ctx context.Context, userID, resourceID string) (bool, error)

func authorize(ctx context.Context, check checkFunc, actor *models.User, resourceID string) error {
	if actor == nil {
		return newError(ErrUnauthenticated, "Could not validate credentials")
	}
	allowed, err := check(ctx, actor.ID, resourceID)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !allowed {
		return newError(ErrForbidden, "Not enough permissions")
	}
	return nil
}

func lookupInvitee(ctx context.Context, users UserStore, email string) (*models.User, error) {
	invitee, err := users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}
	if invitee == nil {
		return nil, newError(ErrNotFound, "User not found")
	}
	return invitee, nil
}

func alreadyMember() error {
	return newError(ErrConflict, "User is already a member")
}

// inviteOutcome maps an invite result to its metric label.
func inviteOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	default:
		return "error"
	}
}

func countInvite(scope auth.ResourceScope, err error) {
	telemetry.MembershipInvitesTotal.WithLabelValues(string(scope), inviteOutcome(err)).Inc()
}
