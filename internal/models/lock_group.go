package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LockGroup groups locks for set-intersection permission matching.
type LockGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Display name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// LockGroupIDs stores lock group identifiers as a JSON array.
type LockGroupIDs []uint64

// Value implements driver.Valuer for database serialization.
func (ids LockGroupIDs) Value() (driver.Value, error) {
	data, errMarshal := json.Marshal(ids.Clean())
	if errMarshal != nil {
		return nil, fmt.Errorf("lock group ids marshal: %w", errMarshal)
	}
	return data, nil
}

// Scan implements sql.Scanner for database deserialization.
func (ids *LockGroupIDs) Scan(value any) error {
	if ids == nil {
		return fmt.Errorf("lock group ids scan: nil receiver")
	}
	if value == nil {
		*ids = LockGroupIDs{}
		return nil
	}

	switch typed := value.(type) {
	case []byte:
		return parseLockGroupIDs(ids, typed)
	case string:
		return parseLockGroupIDs(ids, []byte(typed))
	case int64:
		if typed < 0 {
			*ids = LockGroupIDs{}
			return nil
		}
		*ids = LockGroupIDs{uint64(typed)}
		return nil
	default:
		return fmt.Errorf("lock group ids scan: unsupported type %T", value)
	}
}

func parseLockGroupIDs(target *LockGroupIDs, data []byte) error {
	if len(data) == 0 {
		*target = LockGroupIDs{}
		return nil
	}

	var list []uint64
	if errList := json.Unmarshal(data, &list); errList == nil {
		*target = LockGroupIDs(list).Clean()
		return nil
	}

	var single uint64
	if errSingle := json.Unmarshal(data, &single); errSingle == nil {
		*target = LockGroupIDs{single}
		return nil
	}

	return fmt.Errorf("lock group ids scan: invalid json")
}

// Clean removes zero values and duplicates, preserving order.
func (ids LockGroupIDs) Clean() LockGroupIDs {
	if len(ids) == 0 {
		return LockGroupIDs{}
	}
	seen := make(map[uint64]struct{}, len(ids))
	cleaned := make(LockGroupIDs, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	return cleaned
}

// Contains reports whether id is present.
func (ids LockGroupIDs) Contains(id uint64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Intersects reports whether the two sets share at least one id.
func (ids LockGroupIDs) Intersects(other LockGroupIDs) bool {
	if len(ids) == 0 || len(other) == 0 {
		return false
	}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range other {
		if _, ok := seen[id]; ok {
			return true
		}
	}
	return false
}
