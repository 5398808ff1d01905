package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"github.com/latchwork/latchd/internal/security"
	"gorm.io/gorm"
)

// AdminHandler manages admin account endpoints.
type AdminHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB, recorder *audit.Recorder) *AdminHandler {
	return &AdminHandler{db: db, recorder: recorder}
}

// adminResponse renders an admin row. The password hash never leaves
// the database layer.
func adminResponse(admin models.Admin) gin.H {
	return gin.H{
		"id":         admin.ID,
		"username":   admin.Username,
		"role":       admin.Role,
		"active":     admin.Active,
		"created_at": admin.CreatedAt,
		"updated_at": admin.UpdatedAt,
	}
}

func parseAdminRole(raw string) (models.AdminRole, error) {
	switch models.AdminRole(strings.ToLower(strings.TrimSpace(raw))) {
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	case models.RoleOperator, "":
		return models.RoleOperator, nil
	default:
		return "", fmt.Errorf("invalid role: %q", raw)
	}
}

// createAdminRequest defines the request body for admin creation.
type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create creates a new admin account.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}
	role, errRole := parseAdminRole(body.Role)
	if errRole != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRole.Error()})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	admin := models.Admin{Username: username, Password: hash, Role: role, Active: true}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		if dbutil.IsDuplicateKey(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "admin already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New admin added: @%s (%s)", username, role), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, adminResponse(admin))
}

// List returns all admin accounts.
func (h *AdminHandler) List(c *gin.Context) {
	var rows []models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// updateAdminRequest defines the request body for admin updates.
type updateAdminRequest struct {
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

// Update modifies an admin account.
func (h *AdminHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Password != nil && *body.Password != "" {
		hash, errHash := security.HashPassword(*body.Password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
			return
		}
		updates["password"] = hash
	}
	if body.Role != nil {
		role, errRole := parseAdminRole(*body.Role)
		if errRole != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errRole.Error()})
			return
		}
		updates["role"] = role
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Admin updated: %d", id), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes an admin account.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if id == c.GetUint64("adminID") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete own account"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Delete(&models.Admin{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Admin removed: %d", id), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}
