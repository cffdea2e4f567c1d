package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one local-store slot when the cache lives in a SQL database.
type KVEntry struct {
	Key       string         `gorm:"primaryKey;size:191"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "local_kv" }
