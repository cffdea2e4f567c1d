// Package api serves the JSON API over the file store. Every response is an
// envelope {ok, message?, ...payload}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"zxsgit/internal/apperr"
	"zxsgit/internal/logs"
	"zxsgit/internal/middleware"
	"zxsgit/internal/models"
)

const (
	Name    = "ZXSGit API Server"
	Version = "1.0.0"

	// company payloads carry data URLs
	maxBody = 50 << 20
)

// Store is what the handlers need from persistence.
type Store interface {
	Register(ctx context.Context, in models.RegisterRequest) (models.Session, error)
	Login(ctx context.Context, in models.LoginRequest) (models.Session, error)
	Users(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, in models.UserUpdateRequest) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
	SyncUsers(ctx context.Context, users []models.StoredUser) ([]models.User, error)

	Todos(ctx context.Context) ([]models.Todo, error)
	SaveTodos(ctx context.Context, todos []models.Todo) error

	Companies(ctx context.Context) ([]models.Company, error)
	Company(ctx context.Context, id string) (models.Company, error)
	CreateCompany(ctx context.Context, in models.CompanyInput) (models.Company, int, error)
	UpdateCompany(ctx context.Context, id string, in models.CompanyInput) (models.Company, int, error)
	DeleteCompany(ctx context.Context, id string) error
}

type Handler struct {
	store Store
	log   *logrus.Entry
}

func NewHandler(s Store) *Handler {
	return &Handler{store: s, log: logs.Component("api")}
}

var endpoints = []string{
	"POST /api/register",
	"POST /api/login",
	"GET /api/users",
	"PUT /api/users/:id",
	"DELETE /api/users/:id",
	"POST /api/users/sync",
	"GET /api/todos",
	"POST /api/todos",
	"GET /api/companies",
	"GET /api/companies/:id",
	"POST /api/companies",
	"PUT /api/companies/:id",
	"DELETE /api/companies/:id",
}

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	a.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	a.HandleFunc("/users/sync", h.SyncUsers).Methods(http.MethodPost)
	a.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	a.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)

	a.HandleFunc("/todos", h.ListTodos).Methods(http.MethodGet)
	a.HandleFunc("/todos", h.SaveTodos).Methods(http.MethodPost)

	a.HandleFunc("/companies", h.ListCompanies).Methods(http.MethodGet)
	a.HandleFunc("/companies", h.CreateCompany).Methods(http.MethodPost)
	a.HandleFunc("/companies/{id}", h.GetCompany).Methods(http.MethodGet)
	a.HandleFunc("/companies/{id}", h.UpdateCompany).Methods(http.MethodPut)
	a.HandleFunc("/companies/{id}", h.DeleteCompany).Methods(http.MethodDelete)

	a.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		models.WriteFail(w, http.StatusNotFound, "Not found")
	})
}

func ok(msg string) models.Envelope { return models.Envelope{OK: true, Message: msg} }

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			models.WriteFail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		models.WriteFail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// fail answers err, logging anything that is not the caller's fault.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if k := apperr.KindOf(err); k == apperr.KindInternal || k == apperr.KindStorageFull {
		h.log.WithFields(logrus.Fields{
			"op":    op,
			"reqid": middleware.GetRequestID(r),
		}).WithError(err).Error("request failed")
	}
	models.WriteError(w, err)
}

func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.IndexResponse{
		Envelope:  ok(Name),
		Version:   Version,
		Endpoints: endpoints,
	})
}
