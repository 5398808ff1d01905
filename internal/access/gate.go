package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/latchwork/latchd/internal/audit"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/metrics"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// Gate resolves devices by chip id and gates untrusted hardware.
type Gate struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewGate constructs a Gate.
func NewGate(db *gorm.DB, recorder *audit.Recorder) *Gate {
	return &Gate{db: db, recorder: recorder}
}

// Resolve returns the device for the chip id, creating it with unknown
// status on first contact. Creation is idempotent: a concurrent first
// contact for the same chip id resolves to the single row enforced by
// the unique index, never to a duplicate.
func (g *Gate) Resolve(ctx context.Context, chipID string) (models.Device, bool, error) {
	chipID = strings.TrimSpace(chipID)
	if chipID == "" {
		return models.Device{}, false, fmt.Errorf("access: empty chip id")
	}

	var device models.Device
	errFind := g.db.WithContext(ctx).Where("chip_id = ?", chipID).First(&device).Error
	if errFind == nil {
		return device, false, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.Device{}, false, fmt.Errorf("access: find device: %w", errFind)
	}

	device = models.Device{ChipID: chipID, Status: models.DeviceStatusUnknown}
	errCreate := g.db.WithContext(ctx).Create(&device).Error
	if errCreate != nil {
		if !dbutil.IsDuplicateKey(errCreate) {
			return models.Device{}, false, fmt.Errorf("access: register device: %w", errCreate)
		}
		// Lost a registration race; the unique index guarantees the
		// winner's row is the one to use.
		errRetry := g.db.WithContext(ctx).Where("chip_id = ?", chipID).First(&device).Error
		if errRetry != nil {
			return models.Device{}, false, fmt.Errorf("access: register device: %w", errCreate)
		}
		return device, false, nil
	}

	metrics.DeviceRegistered()
	g.recorder.Activity(ctx, models.ActivityCreate,
		fmt.Sprintf("New device registered: %s is pending trust", chipID), "")
	return device, true, nil
}

// Trust transitions a device to trusted status.
func (g *Gate) Trust(ctx context.Context, chipID string) (models.Device, error) {
	return g.setStatus(ctx, chipID, models.DeviceStatusTrusted)
}

// Block transitions a device to blocked status.
func (g *Gate) Block(ctx context.Context, chipID string) (models.Device, error) {
	return g.setStatus(ctx, chipID, models.DeviceStatusBlocked)
}

func (g *Gate) setStatus(ctx context.Context, chipID string, status models.DeviceStatus) (models.Device, error) {
	var device models.Device
	if errFind := g.db.WithContext(ctx).Where("chip_id = ?", chipID).First(&device).Error; errFind != nil {
		return models.Device{}, fmt.Errorf("access: find device %q: %w", chipID, errFind)
	}
	if device.Status == status {
		return device, nil
	}
	if errUpdate := g.db.WithContext(ctx).Model(&device).Update("status", status).Error; errUpdate != nil {
		return models.Device{}, fmt.Errorf("access: update device status: %w", errUpdate)
	}
	device.Status = status
	return device, nil
}
