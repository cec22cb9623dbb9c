package migrations

import (
	"time"

	"gorm.io/gorm"
)

// Run applies the schema used by the Postgres-backed session storage.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&sessionEntryRecord{})
}

// Session entry schema mirrors the session storage adapter.
type sessionEntryRecord struct {
	Key       string    `gorm:"primaryKey;column:key;size:128"`
	Value     string    `gorm:"column:value;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sessionEntryRecord) TableName() string { return "session_entries" }
