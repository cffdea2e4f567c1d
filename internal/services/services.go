// Package services implements the Users, Companies, Todos and Products entity
// services.
//
// Every write follows the same path: validate, try the API, and on success
// cache the authoritative result locally. When the API is unreachable the same
// mutation is applied to the local store instead. Either way one change
// notification is published. Errors returned by the API for the request itself
// (validation, conflict, not found) are final and do not trigger the fallback.
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/logs"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/internal/remote"
	"zxsgit/internal/session"
)

type UserRemote interface {
	Register(ctx context.Context, in models.RegisterRequest) remote.Result[models.Session]
	Login(ctx context.Context, in models.LoginRequest) remote.Result[models.Session]
	ListUsers(ctx context.Context) remote.Result[[]models.User]
	UpdateUser(ctx context.Context, id string, in models.UserUpdateRequest) remote.Result[models.User]
	DeleteUser(ctx context.Context, id string) remote.Result[struct{}]
	SyncUsers(ctx context.Context, users []models.StoredUser) remote.Result[[]models.User]
}

type CompanyRemote interface {
	ListCompanies(ctx context.Context) remote.Result[[]models.Company]
	GetCompany(ctx context.Context, id string) remote.Result[models.Company]
	CreateCompany(ctx context.Context, in models.CompanyInput) remote.Result[models.Company]
	UpdateCompany(ctx context.Context, id string, in models.CompanyInput) remote.Result[models.Company]
	DeleteCompany(ctx context.Context, id string) remote.Result[struct{}]
}

type TodoRemote interface {
	ListTodos(ctx context.Context) remote.Result[[]models.Todo]
	SaveTodos(ctx context.Context, todos []models.Todo) remote.Result[struct{}]
}

// Deps are shared by all services; NewID and Now default to uuid and the wall clock.
type Deps struct {
	Local   *localstore.Store
	Session *session.Manager
	Bus     *bus.Bus
	Hasher  password.Hasher
	NewID   func() string
	Now     func() models.Millis
}

func (d Deps) withDefaults() Deps {
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = models.Now
	}
	if d.Bus == nil {
		d.Bus = bus.New()
	}
	return d
}

var (
	errNotAuthenticated = apperr.Unauthorized("Not authenticated")
	errAdminOnly        = apperr.Forbidden("Admin access required")
)

func (d Deps) requireSession(ctx context.Context) (models.Session, error) {
	s, ok := d.Session.Current(ctx)
	if !ok {
		return models.Session{}, errNotAuthenticated
	}
	return s, nil
}

func (d Deps) requireAdmin(ctx context.Context) (models.Session, error) {
	s, err := d.requireSession(ctx)
	if err != nil {
		return s, err
	}
	if !s.IsAdmin() {
		return s, errAdminOnly
	}
	return s, nil
}

func fallbackLog(component, op string, err error) {
	logs.Component(component).WithFields(logrus.Fields{"op": op}).WithError(err).
		Warn("server unavailable, using local storage")
}

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
