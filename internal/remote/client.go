// Package remote is the HTTP client for the JSON API. Calls never return Go
// errors: every outcome, transport failures included, is a Result.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"zxsgit/internal/apperr"
	"zxsgit/internal/logs"
	"zxsgit/internal/middleware"
	"zxsgit/internal/models"
)

// Result is either {OK: true, Value} or {OK: false, Message, Kind}.
type Result[T any] struct {
	OK      bool
	Value   T
	Message string
	Status  int
	Kind    apperr.Kind
	cause   error
}

// Err converts a failed result into an apperr error, nil on success.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	if r.cause != nil {
		return apperr.Wrap(r.Kind, r.Message, r.cause)
	}
	return apperr.New(r.Kind, r.Message)
}

// Unavailable reports whether the API could not be reached or did not answer
// properly, which is when callers fall back to the local store.
func (r Result[T]) Unavailable() bool { return !r.OK && r.Kind == apperr.KindNetwork }

func succeeded[T any](v T, status int, msg string) Result[T] {
	return Result[T]{OK: true, Value: v, Status: status, Message: msg}
}

func failed[T any](kind apperr.Kind, status int, msg string, cause error) Result[T] {
	return Result[T]{Kind: kind, Status: status, Message: msg, cause: cause}
}

// Of builds a Result from an in-process call, classifying err with apperr.
func Of[T any](v T, err error) Result[T] {
	if err == nil {
		return succeeded(v, http.StatusOK, "")
	}
	kind := apperr.KindOf(err)
	return failed[T](kind, apperr.HTTPStatus(kind), apperr.Message(err), err)
}

func mapResult[A, B any](r Result[A], f func(A) B) Result[B] {
	out := Result[B]{OK: r.OK, Message: r.Message, Status: r.Status, Kind: r.Kind, cause: r.cause}
	if r.OK {
		out.Value = f(r.Value)
	}
	return out
}

const maxBody = 64 << 20

type Client struct {
	base string
	http *http.Client
	log  *logrus.Entry
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, e.g. in tests.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New returns a client for the API at baseURL. timeout bounds each call; no
// call is retried.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  logs.Component("remote"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.base }

// call performs one request and decodes the response envelope into R.
func call[R any](ctx context.Context, c *Client, method, path string, body any) Result[R] {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return failed[R](apperr.KindInternal, 0, "Something went wrong", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return failed[R](apperr.KindInternal, 0, "Something went wrong", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.RequestIDFrom(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return failed[R](apperr.KindNetwork, 0, "Server unavailable", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.WithError(err).Warn("read body")
		return failed[R](apperr.KindNetwork, resp.StatusCode, "Server unavailable", err)
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.WithError(err).Warn("undecodable response")
		return failed[R](apperr.KindNetwork, resp.StatusCode, "Server unavailable", err)
	}

	if resp.StatusCode >= 500 {
		log.WithField("message", env.Message).Warn("server error")
		return failed[R](apperr.KindNetwork, resp.StatusCode, "Server unavailable",
			fmt.Errorf("status %d: %s", resp.StatusCode, env.Message))
	}
	if resp.StatusCode >= 300 || !env.OK {
		kind := apperr.FromStatus(resp.StatusCode)
		if resp.StatusCode < 300 {
			kind = apperr.KindValidation
		}
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.WithField("message", msg).Debug("request rejected")
		return failed[R](kind, resp.StatusCode, msg, nil)
	}

	var out R
	if err := json.Unmarshal(raw, &out); err != nil {
		log.WithError(err).Warn("undecodable response")
		return failed[R](apperr.KindNetwork, resp.StatusCode, "Server unavailable", err)
	}
	log.Debug("ok")
	return succeeded(out, resp.StatusCode, env.Message)
}

func idPath(prefix, id string) string { return prefix + "/" + url.PathEscape(id) }

// Auth

func (c *Client) Register(ctx context.Context, in models.RegisterRequest) Result[models.Session] {
	r := call[models.SessionResponse](ctx, c, http.MethodPost, "/api/register", in)
	return mapResult(r, func(v models.SessionResponse) models.Session { return v.Session })
}

func (c *Client) Login(ctx context.Context, in models.LoginRequest) Result[models.Session] {
	r := call[models.SessionResponse](ctx, c, http.MethodPost, "/api/login", in)
	return mapResult(r, func(v models.SessionResponse) models.Session { return v.Session })
}

// Users

func (c *Client) ListUsers(ctx context.Context) Result[[]models.User] {
	r := call[models.UsersResponse](ctx, c, http.MethodGet, "/api/users", nil)
	return mapResult(r, func(v models.UsersResponse) []models.User { return v.Users })
}

func (c *Client) UpdateUser(ctx context.Context, id string, in models.UserUpdateRequest) Result[models.User] {
	r := call[models.UserResponse](ctx, c, http.MethodPut, idPath("/api/users", id), in)
	return mapResult(r, func(v models.UserResponse) models.User { return v.User })
}

func (c *Client) DeleteUser(ctx context.Context, id string) Result[struct{}] {
	return call[struct{}](ctx, c, http.MethodDelete, idPath("/api/users", id), nil)
}

// SyncUsers uploads cached users; the server answers with the merged list.
func (c *Client) SyncUsers(ctx context.Context, users []models.StoredUser) Result[[]models.User] {
	r := call[models.UsersResponse](ctx, c, http.MethodPost, "/api/users/sync", models.SyncUsersRequest{Users: users})
	return mapResult(r, func(v models.UsersResponse) []models.User { return v.Users })
}

// Todos

func (c *Client) ListTodos(ctx context.Context) Result[[]models.Todo] {
	r := call[models.TodosResponse](ctx, c, http.MethodGet, "/api/todos", nil)
	return mapResult(r, func(v models.TodosResponse) []models.Todo { return v.Todos })
}

// SaveTodos replaces the whole collection.
func (c *Client) SaveTodos(ctx context.Context, todos []models.Todo) Result[struct{}] {
	if todos == nil {
		todos = []models.Todo{}
	}
	return call[struct{}](ctx, c, http.MethodPost, "/api/todos", models.SaveTodosRequest{Todos: todos})
}

// Companies

func (c *Client) ListCompanies(ctx context.Context) Result[[]models.Company] {
	r := call[models.CompaniesResponse](ctx, c, http.MethodGet, "/api/companies", nil)
	return mapResult(r, func(v models.CompaniesResponse) []models.Company { return v.Companies })
}

func (c *Client) GetCompany(ctx context.Context, id string) Result[models.Company] {
	r := call[models.CompanyResponse](ctx, c, http.MethodGet, idPath("/api/companies", id), nil)
	return mapResult(r, func(v models.CompanyResponse) models.Company { return v.Company })
}

func (c *Client) CreateCompany(ctx context.Context, in models.CompanyInput) Result[models.Company] {
	r := call[models.CompanyResponse](ctx, c, http.MethodPost, "/api/companies", in)
	return mapResult(r, func(v models.CompanyResponse) models.Company { return v.Company })
}

func (c *Client) UpdateCompany(ctx context.Context, id string, in models.CompanyInput) Result[models.Company] {
	r := call[models.CompanyResponse](ctx, c, http.MethodPut, idPath("/api/companies", id), in)
	return mapResult(r, func(v models.CompanyResponse) models.Company { return v.Company })
}

func (c *Client) DeleteCompany(ctx context.Context, id string) Result[struct{}] {
	return call[struct{}](ctx, c, http.MethodDelete, idPath("/api/companies", id), nil)
}
