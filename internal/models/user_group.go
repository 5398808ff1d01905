package models

import "time"

// UserGroup groups users and carries their permission grant.
//
// Exactly one of the two permission shapes is consulted at runtime,
// depending on the configured policy: Authority for the flat numeric
// policy, LockGroupIDs/OverridePin for the set-intersection policy.
type UserGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Display name.

	Authority *int `gorm:"column:authority"` // Flat-policy authority tier.

	LockGroupIDs LockGroupIDs `gorm:"type:jsonb;not null;default:'[]'"` // Permitted lock group IDs.
	OverridePin  bool         `gorm:"not null;default:false"`           // May override an engaged privacy pin.

	Users []User `gorm:"foreignKey:UserGroupID"` // Related users.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
