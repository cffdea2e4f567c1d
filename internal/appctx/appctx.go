// Package appctx builds the client application context: one local store, one
// session, one notification bus and the three entity services sharing them.
// It is constructed once at startup and passed to whatever drives it.
package appctx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zxsgit/config"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/logs"
	"zxsgit/internal/password"
	"zxsgit/internal/remote"
	"zxsgit/internal/services"
	"zxsgit/internal/session"
)

type Context struct {
	Local     *localstore.Store
	Session   *session.Manager
	Bus       *bus.Bus
	Remote    *remote.Client
	Users     *services.Users
	Companies *services.Companies
	Todos     *services.Todos
	Products  *services.Products

	adminOnce sync.Once
	adminErr  error
	closeOnce sync.Once
}

// Options override pieces of the default wiring, mostly for tests.
type Options struct {
	Backend localstore.Backend // replaces the configured backend
}

// New opens the configured local backend and wires the services. The
// administrator is seeded into the local cache before New returns.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Context, error) {
	var (
		local *localstore.Store
		err   error
	)
	quota := int(cfg.Local.QuotaBytes)
	if opts.Backend != nil {
		local = localstore.New(opts.Backend, localstore.WithMaxValueBytes(quota))
	} else {
		local, err = localstore.Open(ctx, localstore.Options{
			Driver:     cfg.Local.Driver,
			DSN:        cfg.Local.DSN,
			QuotaBytes: quota,
			Redis: localstore.RedisOptions{
				Addr:     cfg.Local.Redis.Addr,
				Password: cfg.Local.Redis.Password,
				DB:       cfg.Local.Redis.DB,
				Prefix:   cfg.Local.KeyPrefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("local store: %w", err)
		}
	}

	timeout := cfg.Client.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Context{
		Local:   local,
		Session: session.NewManager(local),
		Bus:     bus.New(),
		Remote:  remote.New(cfg.Client.APIURL, timeout),
	}
	deps := services.Deps{
		Local:   c.Local,
		Session: c.Session,
		Bus:     c.Bus,
		Hasher:  password.New(password.Scheme(cfg.Auth.PasswordScheme)),
	}
	c.Users = services.NewUsers(deps, c.Remote)
	c.Companies = services.NewCompanies(deps, c.Remote)
	c.Todos = services.NewTodos(deps, c.Remote)
	c.Products = services.NewProducts(deps)

	if err := c.EnsureAdmin(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	logs.Component("appctx").WithField("api", c.Remote.BaseURL()).
		WithField("local", cfg.Local.Driver).Debug("application context ready")
	return c, nil
}

// EnsureAdmin seeds the administrator once per Context. Later calls return
// the first outcome.
func (c *Context) EnsureAdmin(ctx context.Context) error {
	c.adminOnce.Do(func() {
		if err := c.Users.EnsureAdmin(ctx); err != nil {
			c.adminErr = fmt.Errorf("ensure admin: %w", err)
		}
	})
	return c.adminErr
}

func (c *Context) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.Local.Close()
	})
	return err
}
