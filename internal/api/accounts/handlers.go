// Package accounts implements registration, login, and the current-user
// endpoint.
package accounts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blokid/blokid-backend/internal/api/respond"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/middleware"
	"github.com/blokid/blokid-backend/internal/services"
)

// Service is the account behaviour the handlers need.
type Service interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Token, error)
}

// Handlers serves /auth
type Handlers struct {
	svc Service
}

// NewHandlers creates account handlers
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// loginRequest accepts JSON {email, password} or an OAuth2 password-grant form
// (username, password).
type loginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// @Summary      Register
// @Description  Create an account. A personal organization is created with the new user as its admin.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  registerRequest  true  "Credentials"
// @Success      201  {object}  models.User
// @Failure      400  {object}  map[string]interface{}  "Invalid body or email already registered"
// @Router       /auth/register [post]
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err)
			return
		}

		user, err := h.svc.Register(c.Request.Context(), services.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// @Summary      Login
// @Description  Exchange email and password for a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  loginRequest  true  "Credentials"
// @Success      200  {object}  services.Token
// @Failure      400  {object}  map[string]interface{}  "Inactive user"
// @Failure      401  {object}  map[string]interface{}  "Incorrect email or password"
// @Router       /auth/login [post]
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBind(&req); err != nil {
			respond.BadRequest(c, err)
			return
		}

		token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}

// @Summary      Current user
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /auth/me [get]
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
