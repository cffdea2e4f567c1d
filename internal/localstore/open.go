package localstore

import (
	"context"
	"fmt"

	"zxsgit/internal/db"
)

type Options struct {
	Driver     string // memory|sqlite|postgres|mysql|redis
	DSN        string
	QuotaBytes int
	Redis      RedisOptions
}

// Open builds the Store for the configured backend.
func Open(ctx context.Context, o Options) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch o.Driver {
	case "", "memory":
		b = NewMemory(o.QuotaBytes)
	case "sqlite", "postgres", "mysql":
		gdb, oerr := db.Open(o.Driver, o.DSN)
		if oerr != nil {
			return nil, fmt.Errorf("open %s: %w", o.Driver, oerr)
		}
		b, err = NewSQL(ctx, gdb, int64(o.QuotaBytes))
	case "redis":
		b, err = NewRedis(ctx, o.Redis)
	default:
		return nil, fmt.Errorf("unsupported local driver: %s", o.Driver)
	}
	if err != nil {
		return nil, err
	}
	return New(b, WithMaxValueBytes(o.QuotaBytes)), nil
}
