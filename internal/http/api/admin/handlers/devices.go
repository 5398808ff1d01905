package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceHandler manages device endpoints.
type DeviceHandler struct {
	db       *gorm.DB
	gate     *access.Gate
	recorder *audit.Recorder
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(db *gorm.DB, gate *access.Gate, recorder *audit.Recorder) *DeviceHandler {
	return &DeviceHandler{db: db, gate: gate, recorder: recorder}
}

// deviceResponse renders a device row.
func deviceResponse(device models.Device) gin.H {
	meta := device.Meta
	if len(meta) == 0 {
		meta = datatypes.JSON("{}")
	}
	return gin.H{
		"id":         device.ID,
		"chip_id":    device.ChipID,
		"status":     device.Status.String(),
		"meta":       meta,
		"created_at": device.CreatedAt,
		"updated_at": device.UpdatedAt,
	}
}

// createDeviceRequest defines the request body for device creation.
type createDeviceRequest struct {
	ChipID  string          `json:"chip_id"`
	Trusted bool            `json:"trusted"`
	Meta    json.RawMessage `json:"meta"`
}

// Create registers a device explicitly. Admin-created devices may be
// trusted immediately; auto-registered ones always start unknown.
func (h *DeviceHandler) Create(c *gin.Context) {
	var body createDeviceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	chipID := strings.TrimSpace(body.ChipID)
	if chipID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing chip_id"})
		return
	}

	status := models.DeviceStatusUnknown
	if body.Trusted {
		status = models.DeviceStatusTrusted
	}
	device := models.Device{ChipID: chipID, Status: status}
	if len(body.Meta) > 0 {
		device.Meta = datatypes.JSON(body.Meta)
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&device).Error; errCreate != nil {
		if dbutil.IsDuplicateKey(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "device already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create device failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New device added: %s is now available", chipID), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, deviceResponse(device))
}

// List returns devices with optional filters.
func (h *DeviceHandler) List(c *gin.Context) {
	var (
		chipQ   = strings.TrimSpace(c.Query("chip_id"))
		statusQ = strings.TrimSpace(c.Query("status"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Device{})
	if chipQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+chipQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "chip_id"), pattern)
	}
	switch statusQ {
	case "unknown":
		q = q.Where("status = ?", models.DeviceStatusUnknown)
	case "trusted":
		q = q.Where("status = ?", models.DeviceStatusTrusted)
	case "blocked":
		q = q.Where("status = ?", models.DeviceStatusBlocked)
	}

	var rows []models.Device
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list devices failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, deviceResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

// Get returns a device by chip id.
func (h *DeviceHandler) Get(c *gin.Context) {
	chipID := strings.TrimSpace(c.Param("chip_id"))
	var device models.Device
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("chip_id = ?", chipID).First(&device).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, deviceResponse(device))
}

// updateDeviceRequest defines the request body for device updates.
type updateDeviceRequest struct {
	ChipID *string         `json:"chip_id"`
	Meta   json.RawMessage `json:"meta"`
}

// Update renames a device's chip id or replaces its metadata.
func (h *DeviceHandler) Update(c *gin.Context) {
	chipID := strings.TrimSpace(c.Param("chip_id"))
	var body updateDeviceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	newChip := chipID
	if body.ChipID != nil && strings.TrimSpace(*body.ChipID) != "" {
		newChip = strings.TrimSpace(*body.ChipID)
		updates["chip_id"] = newChip
	}
	if len(body.Meta) > 0 {
		updates["meta"] = datatypes.JSON(body.Meta)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Device{}).
		Where("chip_id = ?", chipID).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Device updated: record updated from %s to %s", chipID, newChip), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a device.
func (h *DeviceHandler) Delete(c *gin.Context) {
	chipID := strings.TrimSpace(c.Param("chip_id"))
	res := h.db.WithContext(c.Request.Context()).
		Where("chip_id = ?", chipID).Delete(&models.Device{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Device removed: %s is no longer available", chipID), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}

// Trust marks a device as trusted.
func (h *DeviceHandler) Trust(c *gin.Context) {
	h.setStatus(c, models.DeviceStatusTrusted)
}

// Block marks a device as blocked.
func (h *DeviceHandler) Block(c *gin.Context) {
	h.setStatus(c, models.DeviceStatusBlocked)
}

func (h *DeviceHandler) setStatus(c *gin.Context, status models.DeviceStatus) {
	chipID := strings.TrimSpace(c.Param("chip_id"))

	var (
		device models.Device
		err    error
	)
	switch status {
	case models.DeviceStatusTrusted:
		device, err = h.gate.Trust(c.Request.Context(), chipID)
	default:
		device, err = h.gate.Block(c.Request.Context(), chipID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Device updated: %s is now %s", chipID, status), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, deviceResponse(device))
}
