package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/http/api/admin/handlers"
	"github.com/latchwork/latchd/internal/models"
	"github.com/latchwork/latchd/internal/security"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, gate *access.Gate, recorder *audit.Recorder) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg, recorder)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	authed.POST("/logout", authHandler.Logout)

	// Operators reach users, cards, and read-only listings; everything
	// else needs the admin role.
	adminOnly := authed.Group("")
	adminOnly.Use(requireRole(models.RoleAdmin))

	deviceHandler := handlers.NewDeviceHandler(db, gate, recorder)
	authed.GET("/devices", deviceHandler.List)
	authed.GET("/devices/:chip_id", deviceHandler.Get)
	adminOnly.POST("/devices", deviceHandler.Create)
	adminOnly.PUT("/devices/:chip_id", deviceHandler.Update)
	adminOnly.DELETE("/devices/:chip_id", deviceHandler.Delete)
	adminOnly.POST("/devices/:chip_id/trust", deviceHandler.Trust)
	adminOnly.POST("/devices/:chip_id/block", deviceHandler.Block)

	lockHandler := handlers.NewLockHandler(db, recorder)
	authed.GET("/locks", lockHandler.List)
	authed.GET("/locks/:name", lockHandler.Get)
	adminOnly.POST("/locks", lockHandler.Create)
	adminOnly.PUT("/locks/:name", lockHandler.Update)
	adminOnly.DELETE("/locks/:name", lockHandler.Delete)

	lockGroupHandler := handlers.NewLockGroupHandler(db, recorder)
	authed.GET("/lock-groups", lockGroupHandler.List)
	authed.GET("/lock-groups/:id", lockGroupHandler.Get)
	adminOnly.POST("/lock-groups", lockGroupHandler.Create)
	adminOnly.PUT("/lock-groups/:id", lockGroupHandler.Update)
	adminOnly.DELETE("/lock-groups/:id", lockGroupHandler.Delete)

	userGroupHandler := handlers.NewUserGroupHandler(db, recorder)
	authed.GET("/user-groups", userGroupHandler.List)
	authed.GET("/user-groups/:id", userGroupHandler.Get)
	adminOnly.POST("/user-groups", userGroupHandler.Create)
	adminOnly.PUT("/user-groups/:id", userGroupHandler.Update)
	adminOnly.DELETE("/user-groups/:id", userGroupHandler.Delete)

	userHandler := handlers.NewUserHandler(db, recorder)
	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:username", userHandler.Get)
	authed.PUT("/users/:username", userHandler.Update)
	authed.DELETE("/users/:username", userHandler.Delete)

	cardHandler := handlers.NewCardHandler(db, recorder)
	authed.POST("/cards", cardHandler.Create)
	authed.GET("/cards", cardHandler.List)
	authed.GET("/cards/:uuid", cardHandler.Get)
	authed.PUT("/cards/:uuid", cardHandler.Update)
	authed.DELETE("/cards/:uuid", cardHandler.Delete)

	recordHandler := handlers.NewRecordHandler(recorder)
	adminOnly.GET("/records/access", recordHandler.AccessList)
	adminOnly.GET("/records/activity", recordHandler.ActivityList)

	adminHandler := handlers.NewAdminHandler(db, recorder)
	adminOnly.POST("/admins", adminHandler.Create)
	adminOnly.GET("/admins", adminHandler.List)
	adminOnly.PUT("/admins/:id", adminHandler.Update)
	adminOnly.DELETE("/admins/:id", adminHandler.Delete)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Set("adminRole", string(admin.Role))
		c.Next()
	}
}

// requireRole rejects callers whose role does not match.
func requireRole(role models.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("adminRole") != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
