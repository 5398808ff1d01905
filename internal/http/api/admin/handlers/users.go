package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// UserHandler manages card holder endpoints.
type UserHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, recorder *audit.Recorder) *UserHandler {
	return &UserHandler{db: db, recorder: recorder}
}

// userResponse renders a user row.
func userResponse(user models.User, groupName string) gin.H {
	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"user_group_id": user.UserGroupID,
		"group":         groupName,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}
}

// createUserRequest defines the request body for user creation.
type createUserRequest struct {
	Username string `json:"username"`
	Group    string `json:"group"`
}

// Create creates a new user in the named group.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	groupName := strings.TrimSpace(body.Group)
	if username == "" || groupName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or group"})
		return
	}

	var user models.User
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var group models.UserGroup
		if errFind := tx.Where("name = ?", groupName).First(&group).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return errBadReference
			}
			return errFind
		}
		if errScope := requireGuestGroup(c, tx, group.ID); errScope != nil {
			return errScope
		}

		user = models.User{Username: username, UserGroupID: group.ID}
		return tx.Create(&user).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced group does not exist"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest users only"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New user added: %s added to %s group", username, groupName), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, userResponse(user, groupName))
}

// List returns users with optional filters. Operators only see guest
// group members.
func (h *UserHandler) List(c *gin.Context) {
	usernameQ := strings.TrimSpace(c.Query("username"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Preload("UserGroup")
	if usernameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+usernameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}
	if operatorRestricted(c) {
		q = q.Where("user_group_id IN (?)",
			h.db.Model(&models.UserGroup{}).Select("id").Where("name = ?", dbutil.GuestGroupName))
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		groupName := ""
		if row.UserGroup != nil {
			groupName = row.UserGroup.Name
		}
		out = append(out, userResponse(row, groupName))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Get returns a user by username.
func (h *UserHandler) Get(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Preload("UserGroup").
		Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if errScope := requireGuestGroup(c, h.db.WithContext(c.Request.Context()), user.UserGroupID); errScope != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest users only"})
		return
	}
	groupName := ""
	if user.UserGroup != nil {
		groupName = user.UserGroup.Name
	}
	c.JSON(http.StatusOK, userResponse(user, groupName))
}

// updateUserRequest defines the request body for user updates.
type updateUserRequest struct {
	Username *string `json:"username"`
	Group    *string `json:"group"`
}

// Update modifies a user.
func (h *UserHandler) Update(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	groupName := ""
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Where("username = ?", username).First(&user).Error; errFind != nil {
			return errFind
		}
		if errScope := requireGuestGroup(c, tx, user.UserGroupID); errScope != nil {
			return errScope
		}

		updates := map[string]any{}
		if body.Username != nil && strings.TrimSpace(*body.Username) != "" {
			updates["username"] = strings.TrimSpace(*body.Username)
		}
		if body.Group != nil {
			groupName = strings.TrimSpace(*body.Group)
			var group models.UserGroup
			if errFind := tx.Where("name = ?", groupName).First(&group).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return errBadReference
				}
				return errFind
			}
			if errScope := requireGuestGroup(c, tx, group.ID); errScope != nil {
				return errScope
			}
			updates["user_group_id"] = group.ID
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced group does not exist"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest users only"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("User updated: %s", username), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a user and their cards.
func (h *UserHandler) Delete(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Where("username = ?", username).First(&user).Error; errFind != nil {
			return errFind
		}
		if errScope := requireGuestGroup(c, tx, user.UserGroupID); errScope != nil {
			return errScope
		}
		if errCards := tx.Where("user_id = ?", user.ID).Delete(&models.Card{}).Error; errCards != nil {
			return errCards
		}
		return tx.Delete(&user).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest users only"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("User removed: %s and their cards are revoked", username), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}
