package db

import (
	"errors"
	"fmt"

	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// GuestGroupName is the seeded group operators are scoped to.
const GuestGroupName = "Guests"

// Migrate runs schema migrations and seeds baseline rows.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Device{},
		&models.LockGroup{},
		&models.Lock{},
		&models.UserGroup{},
		&models.User{},
		&models.Card{},
		&models.AccessRecord{},
		&models.ActivityRecord{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureGuestGroup(conn); errSeed != nil {
		return errSeed
	}
	return ensureIndexes(conn)
}

// ensureGuestGroup seeds the guest user group the operator role is scoped to.
func ensureGuestGroup(conn *gorm.DB) error {
	var group models.UserGroup
	errFind := conn.Where("name = ?", GuestGroupName).First(&group).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: find guest group: %w", errFind)
	}

	authority := 1
	group = models.UserGroup{
		Name:         GuestGroupName,
		Authority:    &authority,
		LockGroupIDs: models.LockGroupIDs{},
		OverridePin:  false,
	}
	if errCreate := conn.Create(&group).Error; errCreate != nil {
		return fmt.Errorf("db: seed guest group: %w", errCreate)
	}
	return nil
}

// ensureIndexes applies secondary indexes AutoMigrate does not cover.
func ensureIndexes(conn *gorm.DB) error {
	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_access_records_lock_id_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_access_records_lock_id_timestamp
				ON access_records (lock_id, timestamp DESC)
			`,
		},
		{
			name: "idx_access_records_card_id_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_access_records_card_id_timestamp
				ON access_records (card_id, timestamp DESC)
			`,
		},
		{
			name: "idx_activity_records_type_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_activity_records_type_timestamp
				ON activity_records (type, timestamp DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}
	return nil
}
