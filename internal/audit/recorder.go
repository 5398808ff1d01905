package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/latchwork/latchd/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Recorder appends immutable access and activity records.
//
// Writes are append-only: rows are never updated, deduplicated, or
// pruned here. Retrieval is newest-first.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Access appends one record for an authorization attempt. Card and lock
// references stay nil when the attempt never resolved them.
func (r *Recorder) Access(ctx context.Context, cardID, lockID *uint64, locked bool) error {
	record := models.AccessRecord{
		Timestamp: time.Now().UTC(),
		Locked:    locked,
		CardID:    cardID,
		LockID:    lockID,
	}
	if errCreate := r.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return fmt.Errorf("audit: access record: %w", errCreate)
	}
	return nil
}

// Activity appends one record for an administrative mutation or session
// event. Failures are logged, not propagated: audit must not break the
// mutation that already happened.
func (r *Recorder) Activity(ctx context.Context, kind models.ActivityType, message, actor string) {
	record := models.ActivityRecord{
		Timestamp: time.Now().UTC(),
		Type:      kind,
		Message:   message,
		Actor:     actor,
	}
	if errCreate := r.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		log.WithError(errCreate).WithField("type", kind).Error("activity record write failed")
	}
}

// AccessByLock returns access records for the named lock, newest first.
// This feeds the external report exporter.
func (r *Recorder) AccessByLock(ctx context.Context, lockName string) ([]models.AccessRecord, error) {
	var lock models.Lock
	if errFind := r.db.WithContext(ctx).Where("name = ?", lockName).First(&lock).Error; errFind != nil {
		return nil, fmt.Errorf("audit: find lock %q: %w", lockName, errFind)
	}

	var records []models.AccessRecord
	if errFind := r.db.WithContext(ctx).
		Where("lock_id = ?", lock.ID).
		Order("timestamp DESC").
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("audit: access records for %q: %w", lockName, errFind)
	}
	return records, nil
}

// AccessRecords returns the latest access records across all locks.
func (r *Recorder) AccessRecords(ctx context.Context, limit int) ([]models.AccessRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.AccessRecord
	if errFind := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("audit: access records: %w", errFind)
	}
	return records, nil
}

// Activities returns the latest activity records.
func (r *Recorder) Activities(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.ActivityRecord
	if errFind := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error; errFind != nil {
		return nil, fmt.Errorf("audit: activity records: %w", errFind)
	}
	return records, nil
}
