package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "latchd-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestAccess_NilReferences(t *testing.T) {
	conn := newTestDB(t)
	recorder := NewRecorder(conn)

	if err := recorder.Access(context.Background(), nil, nil, true); err != nil {
		t.Fatalf("access: %v", err)
	}

	var record models.AccessRecord
	if errFind := conn.First(&record).Error; errFind != nil {
		t.Fatalf("find record: %v", errFind)
	}
	if record.CardID != nil || record.LockID != nil {
		t.Fatalf("expected nil references, got card=%v lock=%v", record.CardID, record.LockID)
	}
	if !record.Locked {
		t.Fatalf("expected locked attempt")
	}
}

func TestAccessByLock_NewestFirst(t *testing.T) {
	conn := newTestDB(t)
	recorder := NewRecorder(conn)

	lock := models.Lock{Name: "Front Door"}
	if errCreate := conn.Create(&lock).Error; errCreate != nil {
		t.Fatalf("create lock: %v", errCreate)
	}
	other := models.Lock{Name: "Back Door"}
	if errCreate := conn.Create(&other).Error; errCreate != nil {
		t.Fatalf("create lock: %v", errCreate)
	}

	base := time.Now().UTC().Add(-time.Hour)
	rows := []models.AccessRecord{
		{Timestamp: base, LockID: &lock.ID},
		{Timestamp: base.Add(time.Minute), LockID: &lock.ID},
		{Timestamp: base.Add(2 * time.Minute), LockID: &other.ID},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("create record: %v", errCreate)
		}
	}

	records, err := recorder.AccessByLock(context.Background(), "Front Door")
	if err != nil {
		t.Fatalf("access by lock: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].Timestamp.After(records[1].Timestamp) {
		t.Fatalf("expected newest first, got %v then %v", records[0].Timestamp, records[1].Timestamp)
	}
}

func TestAccessByLock_UnknownLock(t *testing.T) {
	conn := newTestDB(t)
	recorder := NewRecorder(conn)

	_, err := recorder.AccessByLock(context.Background(), "Nowhere")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}

func TestActivities_NewestFirstWithLimit(t *testing.T) {
	conn := newTestDB(t)
	recorder := NewRecorder(conn)

	recorder.Activity(context.Background(), models.ActivityCreate, "first", "root")
	recorder.Activity(context.Background(), models.ActivityUpdate, "second", "root")
	recorder.Activity(context.Background(), models.ActivityDelete, "third", "root")

	records, err := recorder.Activities(context.Background(), 2)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
