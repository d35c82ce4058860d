// Package organizations implements the /organizations endpoints. Routes are
// guarded in the router; the service repeats every permission check.
package organizations

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blokid/blokid-backend/internal/api/respond"
	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/middleware"
	"github.com/blokid/blokid-backend/internal/services"
)

// Service is the organization behaviour the handlers need.
type Service interface {
	Create(ctx context.Context, actor *models.User, in services.OrganizationCreate) (*models.Organization, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Organization, error)
	ListForUser(ctx context.Context, actor *models.User) ([]models.Organization, error)
	Update(ctx context.Context, actor *models.User, id string, in services.OrganizationUpdate) (*models.Organization, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Invite(ctx context.Context, actor *models.User, id string, in services.InviteInput) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, actor *models.User, id string) ([]models.OrganizationMemberWithUser, error)
}

// Handlers serves /organizations
type Handlers struct {
	svc Service
}

// NewHandlers creates organization handlers
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

type createRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type updateRequest struct {
	Name        *string                 `json:"name"`
	Description services.NullableString `json:"description"`
}

type inviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// actor fetches the authenticated user or writes a 401.
func actor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return user, ok
}

// @Summary      Create organization
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createRequest  true  "Organization"
// @Success      201  {object}  models.Organization
// @Failure      400  {object}  map[string]interface{}  "Invalid body"
// @Router       /organizations [post]
func (h *Handlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err)
			return
		}

		org, err := h.svc.Create(c.Request.Context(), user, services.OrganizationCreate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

// @Summary      List my organizations
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  models.Organization
// @Router       /organizations [get]
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		orgs, err := h.svc.ListForUser(c.Request.Context(), user)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if orgs == nil {
			orgs = []models.Organization{}
		}
		c.JSON(http.StatusOK, orgs)
	}
}

// @Summary      Get organization
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  models.Organization
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Router       /organizations/{id} [get]
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		org, err := h.svc.Get(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// @Summary      Update organization
// @Description  Only fields present in the body are changed.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Organization ID"
// @Param        body  body  updateRequest  true  "Fields to change"
// @Success      200  {object}  models.Organization
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /organizations/{id} [put]
func (h *Handlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		var req updateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err)
			return
		}

		org, err := h.svc.Update(c.Request.Context(), user, c.Param("id"), services.OrganizationUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// @Summary      Delete organization
// @Description  Deletes the organization, its websites, and all their memberships.
// @Tags         Organizations
// @Security     Bearer
// @Param        id  path  string  true  "Organization ID"
// @Success      204
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /organizations/{id} [delete]
func (h *Handlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		if err := h.svc.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
			respond.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary      Invite member
// @Description  Grants an existing user an organization role. Effective immediately.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Organization ID"
// @Param        body  body  inviteRequest  true  "Invitee"
// @Success      201  {object}  models.OrganizationMember
// @Failure      400  {object}  map[string]interface{}  "Already a member or invalid role"
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /organizations/{id}/invite [post]
func (h *Handlers) InviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		var req inviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err)
			return
		}
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		member, err := h.svc.Invite(c.Request.Context(), user, c.Param("id"), services.InviteInput{
			Email: req.Email,
			Role:  role,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, member)
	}
}

// @Summary      List members
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {array}  models.OrganizationMemberWithUser
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /organizations/{id}/members [get]
func (h *Handlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		members, err := h.svc.ListMembers(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		if members == nil {
			members = []models.OrganizationMemberWithUser{}
		}
		c.JSON(http.StatusOK, members)
	}
}
