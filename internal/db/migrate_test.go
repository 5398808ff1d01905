package db

import (
	"path/filepath"
	"testing"

	"github.com/latchwork/latchd/internal/models"
)

func TestMigrate_SeedsGuestGroup(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "latchd-test.db")
	conn, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	var group models.UserGroup
	if errFind := conn.Where("name = ?", GuestGroupName).First(&group).Error; errFind != nil {
		t.Fatalf("find guest group: %v", errFind)
	}
	if group.Authority == nil || *group.Authority != 1 {
		t.Fatalf("expected authority 1, got %v", group.Authority)
	}
	if group.OverridePin {
		t.Fatalf("guest group must not override the pin")
	}

	// Running migrations again must not duplicate the seed.
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("re-migrate: %v", errMigrate)
	}
	var count int64
	if errCount := conn.Model(&models.UserGroup{}).Where("name = ?", GuestGroupName).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 guest group, got %d", count)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
