package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/internal/apperr"
	"zxsgit/internal/models"
)

func serve(t *testing.T, status int, body string, check func(*http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second)
}

func TestLoginSuccess(t *testing.T) {
	c := serve(t, 200, `{"ok":true,"message":"Signed in","session":{"name":"Admin","email":"admin@zxsgit.local","role":"admin","token":"t1","signedInAt":12}}`,
		func(r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/login", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in models.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "ADMIN@ZXSGIT.LOCAL", in.Email)
		})

	res := c.Login(context.Background(), models.LoginRequest{Email: "ADMIN@ZXSGIT.LOCAL", Password: "admin321"})
	require.True(t, res.OK)
	assert.NoError(t, res.Err())
	assert.Equal(t, "Signed in", res.Message)
	assert.Equal(t, models.RoleAdmin, res.Value.Role)
	assert.Equal(t, models.Millis(12), res.Value.SignedInAt)
}

func TestDomainRejection(t *testing.T) {
	c := serve(t, 409, `{"ok":false,"message":"Email already registered"}`, nil)
	res := c.Register(context.Background(), models.RegisterRequest{Name: "a", Email: "a@b.c", Password: "p"})

	require.False(t, res.OK)
	assert.False(t, res.Unavailable())
	assert.Equal(t, apperr.KindConflict, res.Kind)
	assert.Equal(t, "Email already registered", res.Message)
	assert.ErrorIs(t, res.Err(), apperr.ErrConflict)
}

func TestNetworkFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 500, `{"ok":false,"message":"boom"}`},
		{"html", 200, `<html>proxy</html>`},
		{"bad gateway", 502, `bad gateway`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := serve(t, tc.status, tc.body, nil).ListUsers(context.Background())
			require.False(t, res.OK)
			assert.True(t, res.Unavailable())
			assert.Equal(t, "Server unavailable", res.Message)
			assert.ErrorIs(t, res.Err(), apperr.ErrNetwork)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		res := New(srv.URL, time.Second).ListCompanies(context.Background())
		assert.True(t, res.Unavailable())
	})
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := New(srv.URL, 50*time.Millisecond).ListTodos(context.Background())
	assert.True(t, res.Unavailable())
}

func TestCompanyInputOnTheWire(t *testing.T) {
	c := serve(t, 200, `{"ok":true,"company":{"id":"c1","name":"Acme","media":[],"gallery":[],"relatedUserId":null,"relatedUserIds":[]}}`,
		func(r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/companies/c%201", r.URL.EscapedPath())
			var m map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
			assert.Equal(t, map[string]any{"phone": "123", "relatedUserId": nil}, m)
		})

	in := models.CompanyInput{Phone: models.Str("123"), Related: models.SingleRelatedUser{}}
	res := c.UpdateCompany(context.Background(), "c 1", in)
	require.True(t, res.OK)
	assert.Equal(t, "Acme", res.Value.Name)
}

func TestOKFalseWith200(t *testing.T) {
	res := serve(t, 200, `{"ok":false,"message":"nope"}`, nil).DeleteCompany(context.Background(), "x")
	require.False(t, res.OK)
	assert.False(t, res.Unavailable())
	assert.Equal(t, "nope", res.Message)
}
