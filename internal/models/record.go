package models

import "time"

// AccessRecord is the immutable trail of one authorization attempt.
// Rows are append-only and never deduplicated.
type AccessRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Timestamp time.Time `gorm:"not null;index:idx_access_records_timestamp,sort:desc"` // Attempt time.

	Locked bool `gorm:"not null;default:false"` // Requested lock engagement.

	CardID *uint64 `gorm:"index"`             // Presented card ID, nil if unresolved.
	Card   *Card   `gorm:"foreignKey:CardID"` // Presented card.

	LockID *uint64 `gorm:"index"`             // Targeted lock ID, nil if unresolved.
	Lock   *Lock   `gorm:"foreignKey:LockID"` // Targeted lock.
}

// ActivityType classifies an administrative activity record.
type ActivityType string

// ActivityType constants define the recorded activity kinds.
const (
	ActivityCreate ActivityType = "CREATE"
	ActivityUpdate ActivityType = "UPDATE"
	ActivityDelete ActivityType = "DELETE"
	ActivityLogin  ActivityType = "LOGIN"
	ActivityLogout ActivityType = "LOGOUT"
)

// ActivityRecord is the immutable trail of one administrative mutation
// or session event.
type ActivityRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Timestamp time.Time    `gorm:"not null;index:idx_activity_records_timestamp,sort:desc"` // Event time.
	Type      ActivityType `gorm:"type:text;not null"`                                      // Activity kind.
	Message   string       `gorm:"type:text;not null"`                                      // Human-readable summary.

	Actor string `gorm:"type:text"` // Admin username, empty for system events.
}
