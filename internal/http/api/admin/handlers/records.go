package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// RecordHandler serves the immutable audit trails.
type RecordHandler struct {
	recorder *audit.Recorder
}

// NewRecordHandler constructs a RecordHandler.
func NewRecordHandler(recorder *audit.Recorder) *RecordHandler {
	return &RecordHandler{recorder: recorder}
}

// accessRecordResponse renders an access record row.
func accessRecordResponse(record models.AccessRecord) gin.H {
	return gin.H{
		"id":        record.ID,
		"timestamp": record.Timestamp,
		"locked":    record.Locked,
		"card_id":   record.CardID,
		"lock_id":   record.LockID,
	}
}

// AccessList returns access records newest first. With a lock filter it
// is the feed the external report exporter renders from.
func (h *RecordHandler) AccessList(c *gin.Context) {
	lockName := strings.TrimSpace(c.Query("lock"))
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))

	var (
		records []models.AccessRecord
		err     error
	)
	if lockName != "" {
		records, err = h.recorder.AccessByLock(c.Request.Context(), lockName)
	} else {
		records, err = h.recorder.AccessRecords(c.Request.Context(), limit)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list access records failed"})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		out = append(out, accessRecordResponse(record))
	}
	c.JSON(http.StatusOK, gin.H{"access_records": out})
}

// ActivityList returns activity records newest first.
func (h *RecordHandler) ActivityList(c *gin.Context) {
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))

	records, err := h.recorder.Activities(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list activity records failed"})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		out = append(out, gin.H{
			"id":        record.ID,
			"timestamp": record.Timestamp,
			"type":      record.Type,
			"message":   record.Message,
			"actor":     record.Actor,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activity_records": out})
}
