package models

import "time"

// AdminRole gates what an operator of the admin surface may touch.
type AdminRole string

// AdminRole constants define the admin surface roles.
const (
	// RoleAdmin has full access to every entity.
	RoleAdmin AdminRole = "admin"
	// RoleOperator manages guest users and cards only.
	RoleOperator AdminRole = "operator"
)

// Admin represents an operator account for the admin surface.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string    `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string    `gorm:"type:text;not null"`             // Bcrypt hash.
	Role     AdminRole `gorm:"type:text;not null;default:'operator'"` // Surface role.

	Active bool `gorm:"not null;default:true"` // Whether the account can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
