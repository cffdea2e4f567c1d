package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zxsgit/internal/models"
)

var ErrNotFound = errors.New("key not found")

type KVStore struct{ db *gorm.DB }

func NewKVStore(db *gorm.DB) *KVStore { return &KVStore{db: db} }

func (s *KVStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.KVEntry{})
}

func (s *KVStore) Get(ctx context.Context, key string) (*models.KVEntry, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	var e models.KVEntry
	err := s.db.WithContext(ctx).Where(&models.KVEntry{Key: key}).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Put inserts or replaces the value stored under key.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	e := models.KVEntry{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	// a zero-value struct condition would match every row
	if key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where(&models.KVEntry{Key: key}).Delete(&models.KVEntry{}).Error
}

// Size sums the stored value lengths.
func (s *KVStore) Size(ctx context.Context) (int64, error) {
	var entries []models.KVEntry
	if err := s.db.WithContext(ctx).Select("key", "value").Find(&entries).Error; err != nil {
		return 0, err
	}
	var n int64
	for _, e := range entries {
		n += int64(len(e.Key) + len(e.Value))
	}
	return n, nil
}
