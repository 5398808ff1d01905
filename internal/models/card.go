package models

import "time"

// Card represents an access card presented to a device.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UUID string `gorm:"type:text;not null;uniqueIndex"` // Card identifier as read by the hardware.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	// DueDate bounds usability: past the due date the card no longer
	// authorizes. Unset means the card never expires.
	DueDate *time.Time `gorm:"column:due_date"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Overdue reports whether the card has expired as of now.
func (c Card) Overdue(now time.Time) bool {
	return c.DueDate != nil && now.After(*c.DueDate)
}
