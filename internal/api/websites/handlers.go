// Package websites implements the /websites endpoints.
package websites

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blokid/blokid-backend/internal/api/respond"
	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/middleware"
	"github.com/blokid/blokid-backend/internal/services"
)

// Service is the website behaviour the handlers need.
type Service interface {
	Create(ctx context.Context, actor *models.User, in services.WebsiteCreate) (*models.Website, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Website, error)
	ListForUser(ctx context.Context, actor *models.User) ([]models.Website, error)
	ListByOrganization(ctx context.Context, actor *models.User, orgID string) ([]models.Website, error)
	Update(ctx context.Context, actor *models.User, id string, in services.WebsiteUpdate) (*models.Website, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Invite(ctx context.Context, actor *models.User, id string, in services.InviteInput) (*models.WebsiteMember, error)
	ListMembers(ctx context.Context, actor *models.User, id string) ([]models.WebsiteMemberWithUser, error)
}

// Handlers serves /websites
type Handlers struct {
	svc Service
}

// NewHandlers creates website handlers
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

type createRequest struct {
	Name           string  `json:"name" binding:"required"`
	URL            string  `json:"url" binding:"required"`
	Description    *string `json:"description"`
	OrganizationID string  `json:"organization_id" binding:"required"`
}

type updateRequest struct {
	Name        *string                 `json:"name"`
	URL         *string                 `json:"url"`
	Description services.NullableString `json:"description"`
}

type inviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

func actor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return user, ok
}

// @Summary      Create website
// @Description  Creates a website inside an organization the caller belongs to.
// @Tags         Websites
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createRequest  true  "Website"
// @Success      201  {object}  models.Website
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /websites [post]
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
		// An organization_id that is not a UUID names no organization the
		// caller belongs to.
		if _, err := uuid.Parse(req.OrganizationID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not enough permissions"})
			return
		}

		site, err := h.svc.Create(c.Request.Context(), user, services.WebsiteCreate{
			Name:           req.Name,
			URL:            req.URL,
			Description:    req.Description,
			OrganizationID: req.OrganizationID,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, site)
	}
}

// @Summary      List my websites
// @Description  Websites reachable through an organization plus websites shared directly.
// @Tags         Websites
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  models.Website
// @Router       /websites [get]
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		sites, err := h.svc.ListForUser(c.Request.Context(), user)
		if err != nil {
			respond.Error(c, err)
			return
		}
		writeSites(c, sites)
	}
}

// @Summary      List organization websites
// @Tags         Websites
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {array}  models.Website
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /websites/organizations/{id}/websites [get]
func (h *Handlers) ListByOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		sites, err := h.svc.ListByOrganization(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		writeSites(c, sites)
	}
}

// @Summary      Get website
// @Tags         Websites
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Website ID"
// @Success      200  {object}  models.Website
// @Failure      403  {object}  map[string]interface{}  "Not enough permissions"
// @Router       /websites/{id} [get]
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		site, err := h.svc.Get(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, site)
	}
}

// @Summary      Update website
// @Description  Only fields present in the body are changed. The owning organization cannot change.
// @Tags         Websites
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Website ID"
// @Param        body  body  updateRequest  true  "Fields to change"
// @Success      200  {object}  models.Website
// @Router       /websites/{id} [put]
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

		site, err := h.svc.Update(c.Request.Context(), user, c.Param("id"), services.WebsiteUpdate{
			Name:        req.Name,
			URL:         req.URL,
			Description: req.Description,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, site)
	}
}

// @Summary      Delete website
// @Tags         Websites
// @Security     Bearer
// @Param        id  path  string  true  "Website ID"
// @Success      204
// @Router       /websites/{id} [delete]
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
// @Tags         Websites
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Website ID"
// @Param        body  body  inviteRequest  true  "Invitee"
// @Success      201  {object}  models.WebsiteMember
// @Router       /websites/{id}/invite [post]
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
// @Tags         Websites
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Website ID"
// @Success      200  {array}  models.WebsiteMemberWithUser
// @Router       /websites/{id}/members [get]
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
			members = []models.WebsiteMemberWithUser{}
		}
		c.JSON(http.StatusOK, members)
	}
}

func writeSites(c *gin.Context, sites []models.Website) {
	if sites == nil {
		sites = []models.Website{}
	}
	c.JSON(http.StatusOK, sites)
}
