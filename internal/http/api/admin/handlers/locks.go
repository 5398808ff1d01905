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

// errBadReference marks a relationship assignment to a missing row.
var errBadReference = errors.New("referenced record does not exist")

// LockHandler manages lock endpoints.
type LockHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewLockHandler constructs a LockHandler.
func NewLockHandler(db *gorm.DB, recorder *audit.Recorder) *LockHandler {
	return &LockHandler{db: db, recorder: recorder}
}

// lockResponse renders a lock row.
func lockResponse(lock models.Lock) gin.H {
	return gin.H{
		"id":             lock.ID,
		"name":           lock.Name,
		"device_id":      lock.DeviceID,
		"min_authority":  lock.MinAuthority,
		"lock_group_ids": lock.LockGroupIDs.Clean(),
		"created_at":     lock.CreatedAt,
		"updated_at":     lock.UpdatedAt,
	}
}

// resolveDeviceID maps a chip id to its device row id inside tx.
// A missing device fails the write instead of being created implicitly.
func resolveDeviceID(tx *gorm.DB, chipID string) (*uint64, error) {
	chipID = strings.TrimSpace(chipID)
	if chipID == "" {
		return nil, nil
	}
	var device models.Device
	if errFind := tx.Where("chip_id = ?", chipID).First(&device).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errBadReference
		}
		return nil, errFind
	}
	return &device.ID, nil
}

// verifyLockGroups checks that every referenced lock group exists.
func verifyLockGroups(tx *gorm.DB, ids models.LockGroupIDs) error {
	cleaned := ids.Clean()
	if len(cleaned) == 0 {
		return nil
	}
	var count int64
	if errCount := tx.Model(&models.LockGroup{}).Where("id IN ?", []uint64(cleaned)).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count != int64(len(cleaned)) {
		return errBadReference
	}
	return nil
}

// createLockRequest defines the request body for lock creation.
type createLockRequest struct {
	Name         string              `json:"name"`
	DeviceChipID string              `json:"device_chip_id"`
	MinAuthority *int                `json:"min_authority"`
	LockGroupIDs models.LockGroupIDs `json:"lock_group_ids"`
}

// Create creates a new lock.
func (h *LockHandler) Create(c *gin.Context) {
	var body createLockRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	lock := models.Lock{
		Name:         name,
		MinAuthority: body.MinAuthority,
		LockGroupIDs: body.LockGroupIDs.Clean(),
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		deviceID, errDevice := resolveDeviceID(tx, body.DeviceChipID)
		if errDevice != nil {
			return errDevice
		}
		lock.DeviceID = deviceID
		if errGroups := verifyLockGroups(tx, lock.LockGroupIDs); errGroups != nil {
			return errGroups
		}
		return tx.Create(&lock).Error
	})
	if errTx != nil {
		if errors.Is(errTx, errBadReference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced device or lock group does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create lock failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New lock added: %s is linked to %s", name, strings.TrimSpace(body.DeviceChipID)),
		c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, lockResponse(lock))
}

// List returns locks with optional name filter.
func (h *LockHandler) List(c *gin.Context) {
	nameQ := strings.TrimSpace(c.Query("name"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Lock{})
	if nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.Lock
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list locks failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, lockResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"locks": out})
}

// Get returns a lock by name.
func (h *LockHandler) Get(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	var lock models.Lock
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("name = ?", name).First(&lock).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, lockResponse(lock))
}

// updateLockRequest defines the request body for lock updates.
type updateLockRequest struct {
	Name         *string              `json:"name"`
	DeviceChipID *string              `json:"device_chip_id"`
	MinAuthority *int                 `json:"min_authority"`
	LockGroupIDs *models.LockGroupIDs `json:"lock_group_ids"`
}

// Update modifies a lock.
func (h *LockHandler) Update(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	var body updateLockRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var lock models.Lock
		if errFind := tx.Where("name = ?", name).First(&lock).Error; errFind != nil {
			return errFind
		}

		updates := map[string]any{}
		if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
			updates["name"] = strings.TrimSpace(*body.Name)
		}
		if body.DeviceChipID != nil {
			deviceID, errDevice := resolveDeviceID(tx, *body.DeviceChipID)
			if errDevice != nil {
				return errDevice
			}
			updates["device_id"] = deviceID
		}
		if body.MinAuthority != nil {
			updates["min_authority"] = *body.MinAuthority
		}
		if body.LockGroupIDs != nil {
			cleaned := body.LockGroupIDs.Clean()
			if errGroups := verifyLockGroups(tx, cleaned); errGroups != nil {
				return errGroups
			}
			updates["lock_group_ids"] = cleaned
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&lock).Updates(updates).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced device or lock group does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Lock updated: %s", name), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a lock.
func (h *LockHandler) Delete(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	res := h.db.WithContext(c.Request.Context()).
		Where("name = ?", name).Delete(&models.Lock{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Lock removed: %s is no longer accessible", name), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}
