package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/models"
	"github.com/latchwork/latchd/internal/security"
	"gorm.io/gorm"
)

// AuthHandler manages admin login and logout.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	recorder *audit.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, recorder *audit.Recorder) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, recorder: recorder}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "username or password was incorrect"})
		return
	}
	if !admin.Active || !security.CheckPassword(admin.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "username or password was incorrect"})
		return
	}

	token, errSign := security.SignAdminToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, admin.ID, admin.Username, string(admin.Role))
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityLogin,
		fmt.Sprintf("Welcome, @%s! You are successfully logged in", admin.Username), admin.Username)

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": admin.Username,
		"role":     admin.Role,
	})
}

// Logout records the session end. The token itself is stateless; the
// client discards it.
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := c.GetString("adminUsername")
	h.recorder.Activity(c.Request.Context(), models.ActivityLogout,
		fmt.Sprintf("@%s logged out", actor), actor)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
