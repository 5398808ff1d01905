package models

import "time"

// Lock represents a physical lock operated through a device.
type Lock struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Display name.

	DeviceID *uint64 `gorm:"uniqueIndex"`         // Owning device ID.
	Device   *Device `gorm:"foreignKey:DeviceID"` // Owning device.

	// MinAuthority is the flat-policy requirement: a requester group
	// needs authority >= this value. Unset means never satisfiable.
	MinAuthority *int `gorm:"column:min_authority"`

	LockGroupIDs LockGroupIDs `gorm:"type:jsonb;not null;default:'[]'"` // Member lock group IDs.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
