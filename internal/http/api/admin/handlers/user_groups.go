package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// UserGroupHandler manages user group endpoints.
type UserGroupHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewUserGroupHandler constructs a UserGroupHandler.
func NewUserGroupHandler(db *gorm.DB, recorder *audit.Recorder) *UserGroupHandler {
	return &UserGroupHandler{db: db, recorder: recorder}
}

// userGroupResponse renders a user group row.
func userGroupResponse(group models.UserGroup) gin.H {
	return gin.H{
		"id":             group.ID,
		"name":           group.Name,
		"authority":      group.Authority,
		"lock_group_ids": group.LockGroupIDs.Clean(),
		"override_pin":   group.OverridePin,
		"created_at":     group.CreatedAt,
		"updated_at":     group.UpdatedAt,
	}
}

// createUserGroupRequest defines the request body for user group creation.
type createUserGroupRequest struct {
	Name         string              `json:"name"`
	Authority    *int                `json:"authority"`
	LockGroupIDs models.LockGroupIDs `json:"lock_group_ids"`
	OverridePin  bool                `json:"override_pin"`
}

// Create creates a new user group.
func (h *UserGroupHandler) Create(c *gin.Context) {
	var body createUserGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	group := models.UserGroup{
		Name:         name,
		Authority:    body.Authority,
		LockGroupIDs: body.LockGroupIDs.Clean(),
		OverridePin:  body.OverridePin,
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errGroups := verifyLockGroups(tx, group.LockGroupIDs); errGroups != nil {
			return errGroups
		}
		return tx.Create(&group).Error
	})
	if errTx != nil {
		if errors.Is(errTx, errBadReference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced lock group does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user group failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New group added: %s is now available", name), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, userGroupResponse(group))
}

// List returns user groups with optional filters.
func (h *UserGroupHandler) List(c *gin.Context) {
	var (
		nameQ = strings.TrimSpace(c.Query("name"))
		idQ   = strings.TrimSpace(c.Query("id"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.UserGroup{})
	if nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	if idQ != "" {
		if id, errParse := strconv.ParseUint(idQ, 10, 64); errParse == nil {
			q = q.Where("id = ?", id)
		}
	}

	var rows []models.UserGroup
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list user groups failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, userGroupResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"user_groups": out})
}

// Get returns a user group by ID.
func (h *UserGroupHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var group models.UserGroup
	if errFind := h.db.WithContext(c.Request.Context()).First(&group, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, userGroupResponse(group))
}

// updateUserGroupRequest defines the request body for user group updates.
type updateUserGroupRequest struct {
	Name         *string              `json:"name"`
	Authority    *int                 `json:"authority"`
	LockGroupIDs *models.LockGroupIDs `json:"lock_group_ids"`
	OverridePin  *bool                `json:"override_pin"`
}

// Update modifies a user group.
func (h *UserGroupHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateUserGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
			updates["name"] = strings.TrimSpace(*body.Name)
		}
		if body.Authority != nil {
			updates["authority"] = *body.Authority
		}
		if body.LockGroupIDs != nil {
			cleaned := body.LockGroupIDs.Clean()
			if errGroups := verifyLockGroups(tx, cleaned); errGroups != nil {
				return errGroups
			}
			updates["lock_group_ids"] = cleaned
		}
		if body.OverridePin != nil {
			updates["override_pin"] = *body.OverridePin
		}
		if len(updates) == 0 {
			return nil
		}

		res := tx.Model(&models.UserGroup{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced lock group does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Group updated: %d", id), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a user group. Groups with members are kept: a user must
// always resolve to exactly one group.
func (h *UserGroupHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var members int64
		if errCount := tx.Model(&models.User{}).Where("user_group_id = ?", id).Count(&members).Error; errCount != nil {
			return errCount
		}
		if members > 0 {
			return errGroupInUse
		}

		res := tx.Delete(&models.UserGroup{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errGroupInUse):
			c.JSON(http.StatusConflict, gin.H{"error": "group still has members"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Group removed: %d is no longer available", id), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}

// errGroupInUse marks a delete of a group that still has members.
var errGroupInUse = errors.New("group still has members")
