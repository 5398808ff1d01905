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

// LockGroupHandler manages lock group endpoints.
type LockGroupHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewLockGroupHandler constructs a LockGroupHandler.
func NewLockGroupHandler(db *gorm.DB, recorder *audit.Recorder) *LockGroupHandler {
	return &LockGroupHandler{db: db, recorder: recorder}
}

// createLockGroupRequest defines the request body for lock group creation.
type createLockGroupRequest struct {
	Name string `json:"name"`
}

// Create creates a new lock group.
func (h *LockGroupHandler) Create(c *gin.Context) {
	var body createLockGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	group := models.LockGroup{Name: name}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&group).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "lock group already exists"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New lock group added: %s is now available", name), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, gin.H{"id": group.ID, "name": group.Name, "created_at": group.CreatedAt})
}

// List returns all lock groups.
func (h *LockGroupHandler) List(c *gin.Context) {
	nameQ := strings.TrimSpace(c.Query("name"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.LockGroup{})
	if nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.LockGroup
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list lock groups failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{"id": row.ID, "name": row.Name, "created_at": row.CreatedAt, "updated_at": row.UpdatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"lock_groups": out})
}

// Get returns a lock group by ID.
func (h *LockGroupHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var group models.LockGroup
	if errFind := h.db.WithContext(c.Request.Context()).First(&group, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": group.ID, "name": group.Name, "created_at": group.CreatedAt, "updated_at": group.UpdatedAt})
}

// updateLockGroupRequest defines the request body for lock group updates.
type updateLockGroupRequest struct {
	Name *string `json:"name"`
}

// Update renames a lock group.
func (h *LockGroupHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateLockGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	name := strings.TrimSpace(*body.Name)

	res := h.db.WithContext(c.Request.Context()).Model(&models.LockGroup{}).
		Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Lock group updated: %s", name), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a lock group and strips its id from referencing rows.
func (h *LockGroupHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.LockGroup{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if errLocks := stripLockGroupID(tx, &models.Lock{}, id); errLocks != nil {
			return errLocks
		}
		return stripLockGroupID(tx, &models.UserGroup{}, id)
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Lock group removed: %d is no longer available", id), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}

// stripLockGroupID removes a deleted lock group id from the JSON-array
// membership column of every row of the given model.
func stripLockGroupID(tx *gorm.DB, model any, id uint64) error {
	rows := []struct {
		ID           uint64
		LockGroupIDs models.LockGroupIDs
	}{}
	if errFind := tx.Model(model).Select("id", "lock_group_ids").Find(&rows).Error; errFind != nil {
		return errFind
	}
	for _, row := range rows {
		if !row.LockGroupIDs.Contains(id) {
			continue
		}
		kept := make(models.LockGroupIDs, 0, len(row.LockGroupIDs))
		for _, member := range row.LockGroupIDs {
			if member != id {
				kept = append(kept, member)
			}
		}
		if errUpdate := tx.Model(model).Where("id = ?", row.ID).
			Update("lock_group_ids", kept).Error; errUpdate != nil {
			return errUpdate
		}
	}
	return nil
}
