// guards.go holds the access guards: request-boundary pre-checks that turn a
// negative permission decision into a 403 before the handler runs. Services
// repeat the same check, so a guard is an early exit rather than the only line
// of defence.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blokid/blokid-backend/internal/permissions"
)

// Check is the signature shared by every permission evaluator predicate.
type Check func(ctx context.Context, userID, resourceID string) (bool, error)

// RequirePermission runs check for the current user against the path parameter
// param. It must be registered after AuthMiddleware. An id that is not a UUID
// names no resource and is denied without running check.
func RequirePermission(check Check, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthenticated(c, "Not authenticated")
			return
		}

		resourceID := c.Param(param)
		if _, err := uuid.Parse(resourceID); err != nil {
			forbidden(c)
			return
		}

		allowed, err := check(c.Request.Context(), user.ID, resourceID)
		if err != nil {
			slog.Error("permission check failed",
				"user_id", user.ID,
				"path", c.FullPath(),
				"error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Permission check failed",
			})
			return
		}
		if !allowed {
			forbidden(c)
			return
		}

		c.Next()
	}
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": "Not enough permissions",
	})
}

// RequireOrganizationAccess admits any member of the organization in :id.
func RequireOrganizationAccess(eval *permissions.Evaluator) gin.HandlerFunc {
	return RequirePermission(eval.CanReadOrganization, "id")
}

// RequireOrganizationAdmin admits organization admins only.
func RequireOrganizationAdmin(eval *permissions.Evaluator) gin.HandlerFunc {
	return RequirePermission(eval.CanManageOrganization, "id")
}

// RequireWebsiteAccess admits anyone who can read the website in :id.
func RequireWebsiteAccess(eval *permissions.Evaluator) gin.HandlerFunc {
	return RequirePermission(eval.CanReadWebsite, "id")
}

// RequireWebsiteAdmin admits anyone who can manage the website in :id.
func RequireWebsiteAdmin(eval *permissions.Evaluator) gin.HandlerFunc {
	return RequirePermission(eval.CanManageWebsite, "id")
}
