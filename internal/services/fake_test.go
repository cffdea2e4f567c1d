package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/filestore"
	"zxsgit/internal/localstore"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/internal/remote"
	"zxsgit/internal/session"
)

// api answers like the HTTP API does, backed by a real file store, and can be
// taken offline.
type api struct {
	fs      *filestore.Store
	offline atomic.Bool
	mu      sync.Mutex
	calls   []string
}

var errOffline error = apperr.Network(errors.New("connection refused"))

func run[T any](a *api, op string, f func() (T, error)) remote.Result[T] {
	a.mu.Lock()
	a.calls = append(a.calls, op)
	a.mu.Unlock()
	if a.offline.Load() {
		var zero T
		return remote.Of(zero, errOffline)
	}
	v, err := f()
	return remote.Of(v, err)
}

func ack(err error) (struct{}, error) { return struct{}{}, err }

func (a *api) Register(ctx context.Context, in models.RegisterRequest) remote.Result[models.Session] {
	return run(a, "register", func() (models.Session, error) { return a.fs.Register(ctx, in) })
}

func (a *api) Login(ctx context.Context, in models.LoginRequest) remote.Result[models.Session] {
	return run(a, "login", func() (models.Session, error) { return a.fs.Login(ctx, in) })
}

func (a *api) ListUsers(ctx context.Context) remote.Result[[]models.User] {
	return run(a, "users", func() ([]models.User, error) { return a.fs.Users(ctx) })
}

func (a *api) UpdateUser(ctx context.Context, id string, in models.UserUpdateRequest) remote.Result[models.User] {
	return run(a, "update-user", func() (models.User, error) { return a.fs.UpdateUser(ctx, id, in) })
}

func (a *api) DeleteUser(ctx context.Context, id string) remote.Result[struct{}] {
	return run(a, "delete-user", func() (struct{}, error) { return ack(a.fs.DeleteUser(ctx, id)) })
}

func (a *api) SyncUsers(ctx context.Context, users []models.StoredUser) remote.Result[[]models.User] {
	return run(a, "sync-users", func() ([]models.User, error) { return a.fs.SyncUsers(ctx, users) })
}

func (a *api) ListTodos(ctx context.Context) remote.Result[[]models.Todo] {
	return run(a, "todos", func() ([]models.Todo, error) { return a.fs.Todos(ctx) })
}

func (a *api) SaveTodos(ctx context.Context, todos []models.Todo) remote.Result[struct{}] {
	return run(a, "save-todos", func() (struct{}, error) { return ack(a.fs.SaveTodos(ctx, todos)) })
}

func (a *api) ListCompanies(ctx context.Context) remote.Result[[]models.Company] {
	return run(a, "companies", func() ([]models.Company, error) { return a.fs.Companies(ctx) })
}

func (a *api) GetCompany(ctx context.Context, id string) remote.Result[models.Company] {
	return run(a, "company", func() (models.Company, error) { return a.fs.Company(ctx, id) })
}

func (a *api) CreateCompany(ctx context.Context, in models.CompanyInput) remote.Result[models.Company] {
	return run(a, "create-company", func() (models.Company, error) {
		c, _, err := a.fs.CreateCompany(ctx, in)
		return c, err
	})
}

func (a *api) UpdateCompany(ctx context.Context, id string, in models.CompanyInput) remote.Result[models.Company] {
	return run(a, "update-company", func() (models.Company, error) {
		c, _, err := a.fs.UpdateCompany(ctx, id, in)
		return c, err
	})
}

func (a *api) DeleteCompany(ctx context.Context, id string) remote.Result[struct{}] {
	return run(a, "delete-company", func() (struct{}, error) { return ack(a.fs.DeleteCompany(ctx, id)) })
}

type fixture struct {
	api   *api
	deps  Deps
	mem   *localstore.Memory
	users *Users
	comps *Companies
	todos *Todos
	prods *Products
	fired map[bus.Topic]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := password.New(password.SchemeSHA256)
	fs, err := filestore.Open(t.TempDir(), h)
	require.NoError(t, err)

	mem := localstore.NewMemory(0)
	local := localstore.New(mem)
	var n int64
	deps := Deps{
		Local:   local,
		Session: session.NewManager(local),
		Bus:     bus.New(),
		Hasher:  h,
		Now:     func() models.Millis { return models.Millis(atomic.AddInt64(&n, 1)) },
	}
	f := &fixture{api: &api{fs: fs}, deps: deps, mem: mem, fired: map[bus.Topic]int{}}
	f.users = NewUsers(deps, f.api)
	f.comps = NewCompanies(deps, f.api)
	f.todos = NewTodos(deps, f.api)
	f.prods = NewProducts(deps)
	for _, topic := range []bus.Topic{bus.UsersUpdated, bus.CompaniesUpdated, bus.TodosUpdated, bus.ProductsUpdated} {
		deps.Bus.Subscribe(topic, func(tp bus.Topic) { f.fired[tp]++ })
	}
	require.NoError(t, f.users.EnsureAdmin(context.Background()))
	return f
}

func (f *fixture) signIn(t *testing.T, email, pw string) models.Session {
	t.Helper()
	s, err := f.users.Login(context.Background(), Credentials{Email: email, Password: pw})
	require.NoError(t, err)
	return s
}

func (f *fixture) signInAdmin(t *testing.T) models.Session {
	return f.signIn(t, models.AdminEmail, models.AdminPassword)
}
