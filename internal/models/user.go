package models

import "time"

// User represents a card holder managed through the admin surface.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique name.

	UserGroupID uint64     `gorm:"not null;index"`         // Owning user group ID.
	UserGroup   *UserGroup `gorm:"foreignKey:UserGroupID"` // Owning user group.

	Cards []Card `gorm:"foreignKey:UserID"` // Related cards.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
