package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"zxsgit/internal/repo"
)

// SQL keeps slots in a gorm-managed table (sqlite, postgres or mysql).
type SQL struct {
	db    *gorm.DB
	kv    *repo.KVStore
	quota int64
}

// NewSQL migrates the slot table. quota <= 0 disables the total size check.
func NewSQL(ctx context.Context, db *gorm.DB, quota int64) (*SQL, error) {
	kv := repo.NewKVStore(db)
	if err := kv.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate local_kv: %w", err)
	}
	return &SQL{db: db, kv: kv, quota: quota}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, err := s.kv.Get(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(e.Value), true, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	if s.quota > 0 {
		used, err := s.kv.Size(ctx)
		if err != nil {
			return err
		}
		if old, err := s.kv.Get(ctx, key); err == nil {
			used -= int64(len(key) + len(old.Value))
		}
		if used+int64(len(key)+len(value)) > s.quota {
			return ErrQuotaExceeded
		}
	}
	if err := s.kv.Put(ctx, key, value); err != nil {
		if diskFull(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return err
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error { return s.kv.Delete(ctx, key) }

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// diskFull recognises the out-of-space errors of the supported drivers.
func diskFull(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database or disk is full", "disk full", "no space left", "is full"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
