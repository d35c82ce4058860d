// Package api wires together all HTTP routes for the Blokid backend.
//
// Route grouping:
//   - /health, /version and /auth/register, /auth/login are public.
//   - Every other route sits behind AuthMiddleware. Routes addressed by an
//     organization or website id additionally run an access guard before the
//     handler. The services repeat the permission check, so an unguarded route is
//     still authorized.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/blokid/blokid-backend/internal/api/accounts"
	"github.com/blokid/blokid-backend/internal/api/organizations"
	"github.com/blokid/blokid-backend/internal/api/websites"
	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/config"
	"github.com/blokid/blokid-backend/internal/db/repositories"
	"github.com/blokid/blokid-backend/internal/middleware"
	"github.com/blokid/blokid-backend/internal/notify"
	"github.com/blokid/blokid-backend/internal/permissions"
	"github.com/blokid/blokid-backend/internal/services"
)

// Version is the backend release reported by /version. Overridden at link time.
var Version = "0.1.0"

const healthTimeout = 2 * time.Second

// Dependencies are the long-lived collaborators the router is built from.
type Dependencies struct {
	DB       *sqlx.DB
	Tokens   *auth.TokenIssuer
	Notifier notify.Notifier
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()

	userRepo := repositories.NewUserRepository(deps.DB)
	orgRepo := repositories.NewOrganizationRepository(deps.DB)
	siteRepo := repositories.NewWebsiteRepository(deps.DB)

	eval := permissions.NewEvaluator(orgRepo, siteRepo)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	accountSvc := services.NewAccountService(userRepo, hasher, deps.Tokens)
	orgSvc := services.NewOrganizationService(orgRepo, userRepo, eval, notifier)
	siteSvc := services.NewWebsiteService(siteRepo, orgRepo, userRepo, eval, notifier)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/version", versionHandler())

	requireAuth := middleware.AuthMiddleware(accountSvc)

	accountHandlers := accounts.NewHandlers(accountSvc)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", accountHandlers.RegisterHandler())
		authGroup.POST("/login", accountHandlers.LoginHandler())
		authGroup.GET("/me", requireAuth, accountHandlers.MeHandler())
	}

	orgHandlers := organizations.NewHandlers(orgSvc)
	orgGroup := router.Group("/organizations")
	orgGroup.Use(requireAuth)
	{
		orgGroup.POST("", orgHandlers.CreateHandler())
		orgGroup.GET("", orgHandlers.ListHandler())
		orgGroup.GET("/:id", middleware.RequireOrganizationAccess(eval), orgHandlers.GetHandler())
		orgGroup.PUT("/:id", middleware.RequireOrganizationAccess(eval), orgHandlers.UpdateHandler())
		orgGroup.DELETE("/:id", middleware.RequireOrganizationAdmin(eval), orgHandlers.DeleteHandler())
		orgGroup.POST("/:id/invite", middleware.RequireOrganizationAdmin(eval), orgHandlers.InviteHandler())
		orgGroup.GET("/:id/members", middleware.RequireOrganizationAccess(eval), orgHandlers.ListMembersHandler())
	}

	siteHandlers := websites.NewHandlers(siteSvc)
	siteGroup := router.Group("/websites")
	siteGroup.Use(requireAuth)
	{
		siteGroup.POST("", siteHandlers.CreateHandler())
		siteGroup.GET("", siteHandlers.ListHandler())
		siteGroup.GET("/organizations/:id/websites", middleware.RequireOrganizationAccess(eval), siteHandlers.ListByOrganizationHandler())
		siteGroup.GET("/:id", middleware.RequireWebsiteAccess(eval), siteHandlers.GetHandler())
		// Update admits website users, which is wider than RequireWebsiteAdmin
		// and narrower than RequireWebsiteAccess; the service decides.
		siteGroup.PUT("/:id", siteHandlers.UpdateHandler())
		siteGroup.DELETE("/:id", middleware.RequireWebsiteAdmin(eval), siteHandlers.DeleteHandler())
		siteGroup.POST("/:id/invite", middleware.RequireWebsiteAdmin(eval), siteHandlers.InviteHandler())
		siteGroup.GET("/:id/members", middleware.RequireWebsiteAccess(eval), siteHandlers.ListMembersHandler())
	}

	return router
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			slog.Warn("health check: database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware logs one slog record per request. The handler installed by
// telemetry.SetupLogger decides between JSON and text output and filters by
// level, so health probes only appear when debug logging is on.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		level := slog.LevelInfo
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = slog.LevelError
		case path == "/health":
			level = slog.LevelDebug
		}
		logRequest(c, level, time.Since(start), path, query)
	}
}

func logRequest(c *gin.Context, level slog.Level, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	attrs := []slog.Attr{
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("route", c.FullPath()),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	}
	if userID, ok := c.Get(middleware.UserIDKey); ok {
		attrs = append(attrs, slog.String("user_id", fmt.Sprintf("%v", userID)))
	}
	slog.LogAttrs(c.Request.Context(), level, "http request", attrs...)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	methods := "GET, POST, PUT, DELETE, OPTIONS"
	if len(cfg.Security.CORS.AllowedMethods) > 0 {
		methods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		wildcard := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" {
				allowed, wildcard = true, true
				break
			}
			if allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" || wildcard {
				// Credentials are never combined with a wildcard origin.
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
