package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// dueDateLayout matches the hardware provisioning UI's datetime format.
const dueDateLayout = "2006-01-02T15:04"

// CardHandler manages access card endpoints.
type CardHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewCardHandler constructs a CardHandler.
func NewCardHandler(db *gorm.DB, recorder *audit.Recorder) *CardHandler {
	return &CardHandler{db: db, recorder: recorder}
}

// cardResponse renders a card row.
func cardResponse(card models.Card, username string) gin.H {
	return gin.H{
		"id":         card.ID,
		"uuid":       card.UUID,
		"user_id":    card.UserID,
		"user":       username,
		"due_date":   card.DueDate,
		"created_at": card.CreatedAt,
		"updated_at": card.UpdatedAt,
	}
}

// parseDueDate accepts the provisioning UI format or RFC 3339. Empty
// input means no expiry.
func parseDueDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, errParse := time.Parse(dueDateLayout, trimmed); errParse == nil {
		return &parsed, nil
	}
	parsed, errParse := time.Parse(time.RFC3339, trimmed)
	if errParse != nil {
		return nil, fmt.Errorf("invalid due date: %q", raw)
	}
	return &parsed, nil
}

// createCardRequest defines the request body for card creation.
type createCardRequest struct {
	UUID     string `json:"uuid"`
	Username string `json:"user"`
	DueDate  string `json:"due_date"`
}

// Create issues a card to a user. A missing uuid gets generated.
func (h *CardHandler) Create(c *gin.Context) {
	var body createCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}
	dueDate, errDue := parseDueDate(body.DueDate)
	if errDue != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errDue.Error()})
		return
	}
	cardUUID := strings.TrimSpace(body.UUID)
	if cardUUID == "" {
		cardUUID = uuid.NewString()
	}

	var card models.Card
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Where("username = ?", username).First(&user).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return errBadReference
			}
			return errFind
		}
		if errScope := requireGuestGroup(c, tx, user.UserGroupID); errScope != nil {
			return errScope
		}

		card = models.Card{UUID: cardUUID, UserID: user.ID, DueDate: dueDate}
		return tx.Create(&card).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced user does not exist"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest cards only"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create card failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityCreate,
		fmt.Sprintf("New card added: access granted to @%s", username), c.GetString("adminUsername"))
	c.JSON(http.StatusCreated, cardResponse(card, username))
}

// List returns cards with optional filters. Operators only see cards
// held by guest group members.
func (h *CardHandler) List(c *gin.Context) {
	uuidQ := strings.TrimSpace(c.Query("uuid"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Card{}).Preload("User")
	if uuidQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+uuidQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "uuid"), pattern)
	}
	if operatorRestricted(c) {
		q = q.Where("user_id IN (?)",
			h.db.Model(&models.User{}).Select("id").Where("user_group_id IN (?)",
				h.db.Model(&models.UserGroup{}).Select("id").Where("name = ?", dbutil.GuestGroupName)))
	}

	var rows []models.Card
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list cards failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		username := ""
		if row.User != nil {
			username = row.User.Username
		}
		out = append(out, cardResponse(row, username))
	}
	c.JSON(http.StatusOK, gin.H{"cards": out})
}

// Get returns a card by uuid.
func (h *CardHandler) Get(c *gin.Context) {
	cardUUID := strings.TrimSpace(c.Param("uuid"))
	var card models.Card
	if errFind := h.db.WithContext(c.Request.Context()).Preload("User").
		Where("uuid = ?", cardUUID).First(&card).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	username := ""
	if card.User != nil {
		username = card.User.Username
		if errScope := requireGuestGroup(c, h.db.WithContext(c.Request.Context()), card.User.UserGroupID); errScope != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest cards only"})
			return
		}
	}
	c.JSON(http.StatusOK, cardResponse(card, username))
}

// updateCardRequest defines the request body for card updates.
type updateCardRequest struct {
	UUID     *string `json:"uuid"`
	Username *string `json:"user"`
	DueDate  *string `json:"due_date"`
}

// Update modifies a card.
func (h *CardHandler) Update(c *gin.Context) {
	cardUUID := strings.TrimSpace(c.Param("uuid"))
	var body updateCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if errFind := tx.Where("uuid = ?", cardUUID).First(&card).Error; errFind != nil {
			return errFind
		}
		var holder models.User
		if errFind := tx.First(&holder, card.UserID).Error; errFind == nil {
			if errScope := requireGuestGroup(c, tx, holder.UserGroupID); errScope != nil {
				return errScope
			}
		}

		updates := map[string]any{}
		if body.UUID != nil && strings.TrimSpace(*body.UUID) != "" {
			updates["uuid"] = strings.TrimSpace(*body.UUID)
		}
		if body.Username != nil {
			var user models.User
			if errFind := tx.Where("username = ?", strings.TrimSpace(*body.Username)).First(&user).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return errBadReference
				}
				return errFind
			}
			if errScope := requireGuestGroup(c, tx, user.UserGroupID); errScope != nil {
				return errScope
			}
			updates["user_id"] = user.ID
		}
		if body.DueDate != nil {
			dueDate, errDue := parseDueDate(*body.DueDate)
			if errDue != nil {
				return errDue
			}
			updates["due_date"] = dueDate
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&card).Updates(updates).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errBadReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "referenced user does not exist"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest cards only"})
		case strings.HasPrefix(errTx.Error(), "invalid due date"):
			c.JSON(http.StatusBadRequest, gin.H{"error": errTx.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityUpdate,
		fmt.Sprintf("Card updated: %s", cardUUID), c.GetString("adminUsername"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete revokes a card.
func (h *CardHandler) Delete(c *gin.Context) {
	cardUUID := strings.TrimSpace(c.Param("uuid"))

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if errFind := tx.Where("uuid = ?", cardUUID).First(&card).Error; errFind != nil {
			return errFind
		}
		var holder models.User
		if errFind := tx.First(&holder, card.UserID).Error; errFind == nil {
			if errScope := requireGuestGroup(c, tx, holder.UserGroupID); errScope != nil {
				return errScope
			}
		}
		return tx.Delete(&card).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errOutOfScope):
			c.JSON(http.StatusForbidden, gin.H{"error": "operators manage guest cards only"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}

	h.recorder.Activity(c.Request.Context(), models.ActivityDelete,
		fmt.Sprintf("Card removed: access revoked for %s", cardUUID), c.GetString("adminUsername"))
	c.Status(http.StatusNoContent)
}
