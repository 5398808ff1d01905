package access

import (
	"context"
	"errors"
	"time"

	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Authorization statuses returned to the hardware. The numeric values
// are part of the wire contract and must not change.
const (
	StatusNotAuthorized = 0
	StatusAuthorized    = 1
	StatusDoNotDisturb  = 2
)

// Response messages returned to the hardware.
const (
	MsgNotAuthorized = "NOT AUTHORIZED"
	MsgAuthorized    = "AUTHORIZED"
	MsgDoNotDisturb  = "DO NOT DISTURB"
	MsgDeviceUnknown = "DEVICE UNKNOWN"
	MsgDeviceBlocked = "DEVICE BLOCKED"
	MsgCardUnknown   = "CARD UNKNOWN"
)

// Decision is the definite outcome of one authorization attempt.
type Decision struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

var (
	notAuthorized = Decision{Status: StatusNotAuthorized, Message: MsgNotAuthorized}
	authorized    = Decision{Status: StatusAuthorized, Message: MsgAuthorized}
	doNotDisturb  = Decision{Status: StatusDoNotDisturb, Message: MsgDoNotDisturb}
)

// Engine computes authorization decisions against current entity state.
// Every call re-reads the store; no state is cached across requests.
type Engine struct {
	db       *gorm.DB
	policy   Policy
	gate     *Gate
	recorder *audit.Recorder
}

// NewEngine constructs an Engine.
func NewEngine(db *gorm.DB, policy Policy, gate *Gate, recorder *audit.Recorder) *Engine {
	return &Engine{db: db, policy: policy, gate: gate, recorder: recorder}
}

// Authorize decides whether the card may operate the lock behind the
// device. wantLocked is the hardware's requested lock engagement.
//
// The engine never fails past this boundary: lookup gaps and storage
// faults all fold into NOT AUTHORIZED so the hardware always receives
// a definite status. One AccessRecord is appended for every attempt
// that clears the device trust gate.
func (e *Engine) Authorize(ctx context.Context, cardUUID, chipID string, wantLocked bool) Decision {
	device, _, errResolve := e.gate.Resolve(ctx, chipID)
	if errResolve != nil {
		log.WithError(errResolve).WithField("dev", chipID).Error("device resolve failed")
		return notAuthorized
	}

	switch device.Status {
	case models.DeviceStatusTrusted:
		// Cleared to ask.
	case models.DeviceStatusBlocked:
		return Decision{Status: StatusNotAuthorized, Message: MsgDeviceBlocked}
	default:
		return Decision{Status: StatusNotAuthorized, Message: MsgDeviceUnknown}
	}

	var card models.Card
	if errCard := e.db.WithContext(ctx).Where("uuid = ?", cardUUID).First(&card).Error; errCard != nil {
		if !errors.Is(errCard, gorm.ErrRecordNotFound) {
			log.WithError(errCard).WithField("uuid", cardUUID).Error("card lookup failed")
		}
		e.record(ctx, nil, nil, wantLocked)
		return Decision{Status: StatusNotAuthorized, Message: MsgCardUnknown}
	}

	decision, lockID := e.decide(ctx, card, device, wantLocked)
	e.record(ctx, &card.ID, lockID, wantLocked)
	return decision
}

// decide evaluates the permission chain for a resolved card and trusted
// device, returning the decision and the lock id when one was resolved.
func (e *Engine) decide(ctx context.Context, card models.Card, device models.Device, wantLocked bool) (Decision, *uint64) {
	var lock models.Lock
	if errLock := e.db.WithContext(ctx).Where("device_id = ?", device.ID).First(&lock).Error; errLock != nil {
		if !errors.Is(errLock, gorm.ErrRecordNotFound) {
			log.WithError(errLock).WithField("dev", device.ChipID).Error("lock lookup failed")
		}
		return notAuthorized, nil
	}

	var user models.User
	if errUser := e.db.WithContext(ctx).First(&user, card.UserID).Error; errUser != nil {
		if !errors.Is(errUser, gorm.ErrRecordNotFound) {
			log.WithError(errUser).WithField("uuid", card.UUID).Error("user lookup failed")
		}
		return notAuthorized, &lock.ID
	}

	var group models.UserGroup
	if errGroup := e.db.WithContext(ctx).First(&group, user.UserGroupID).Error; errGroup != nil {
		if !errors.Is(errGroup, gorm.ErrRecordNotFound) {
			log.WithError(errGroup).WithField("user", user.Username).Error("group lookup failed")
		}
		return notAuthorized, &lock.ID
	}

	if !e.policy.Permits(group, lock) {
		return notAuthorized, &lock.ID
	}
	if card.Overdue(time.Now().UTC()) {
		return notAuthorized, &lock.ID
	}

	if wantLocked && !e.policy.CanOverridePin(group) {
		return doNotDisturb, &lock.ID
	}
	return authorized, &lock.ID
}

func (e *Engine) record(ctx context.Context, cardID, lockID *uint64, wantLocked bool) {
	if errRecord := e.recorder.Access(ctx, cardID, lockID, wantLocked); errRecord != nil {
		log.WithError(errRecord).Error("access record write failed")
	}
}
