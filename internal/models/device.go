package models

import (
	"time"

	"gorm.io/datatypes"
)

// DeviceStatus represents the trust state of a door controller.
type DeviceStatus int

// DeviceStatus constants define device trust states.
const (
	// DeviceStatusUnknown marks a device seen but not yet vetted.
	DeviceStatusUnknown DeviceStatus = 0
	// DeviceStatusTrusted marks a device cleared to request authorization.
	DeviceStatusTrusted DeviceStatus = 1
	// DeviceStatusBlocked marks a device explicitly denied by an admin.
	DeviceStatusBlocked DeviceStatus = 2
)

// String returns the admin-facing label for the status.
func (s DeviceStatus) String() string {
	switch s {
	case DeviceStatusTrusted:
		return "trusted"
	case DeviceStatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Device represents a door controller identified by its hardware chip id.
type Device struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ChipID string       `gorm:"type:text;not null;uniqueIndex"` // Hardware chip identifier.
	Status DeviceStatus `gorm:"not null;default:0"`             // Trust status, defaults to unknown.

	Meta datatypes.JSON `gorm:"type:jsonb"` // Free-form admin metadata (location, notes).

	Lock *Lock `gorm:"foreignKey:DeviceID"` // Attached lock, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
