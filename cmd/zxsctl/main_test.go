package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/config"
	"zxsgit/internal/appctx"
	"zxsgit/internal/filestore"
	"zxsgit/internal/localstore"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/server"
)

// harness runs commands against one shared local store, like successive
// invocations sharing a cache file.
type harness struct {
	t   *testing.T
	cfg *config.Config
	mem *localstore.Memory
}

func newHarness(t *testing.T, apiURL string) *harness {
	cfg := &config.Config{}
	cfg.Client.APIURL = apiURL
	cfg.Client.Timeout = time.Second
	cfg.Auth.PasswordScheme = "sha256"
	cfg.Local.Driver = "memory"
	return &harness{t: t, cfg: cfg, mem: localstore.NewMemory(0)}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	c := &cli{open: func(ctx context.Context) (*appctx.Context, error) {
		return appctx.New(ctx, h.cfg, appctx.Options{Backend: h.mem})
	}}
	cmd := newRootCmd(c)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) must(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func startAPI(t *testing.T) (*httptest.Server, *filestore.Store) {
	cfg := &config.Config{}
	cfg.Data.Dir = t.TempDir()
	st, err := filestore.Open(cfg.Data.Dir, password.New(password.SchemeSHA256))
	require.NoError(t, err)
	srv := httptest.NewServer(server.NewRouter(cfg, st))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestSessionAcrossInvocations(t *testing.T) {
	srv, _ := startAPI(t)
	h := newHarness(t, srv.URL)

	out := h.must("register", "--name", "Ann", "--email", "ann@x.io", "--password", "pw")
	assert.Contains(t, out, "Account created")

	out = h.must("whoami", "--json")
	var s models.Session
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "ann@x.io", s.Email)

	h.must("logout")
	_, err := h.run("whoami")
	assert.Error(t, err)

	out = h.must("login", "--email", "ADMIN@zxsgit.local", "--password", "admin321")
	assert.Contains(t, out, "admin")
}

func TestCompaniesAndTodos(t *testing.T) {
	srv, st := startAPI(t)
	h := newHarness(t, srv.URL)
	h.must("login", "--email", models.AdminEmail, "--password", models.AdminPassword)

	dir := t.TempDir()
	var files []string
	for _, n := range []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"} {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("\x89PNG\r\n\x1a\n"), 0o644))
		files = append(files, p)
	}

	out := h.must("companies", "create", "--name", "Acme", "--phone", "555", "--gallery", strings.Join(files, ","), "--json")
	var list []models.Company
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	created := list[0]
	assert.Len(t, created.Gallery, 5)
	assert.Contains(t, created.Gallery[0].DataURL, "data:image/png;base64,")

	stored, err := st.Company(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "555", stored.Phone)

	out = h.must("companies", "update", created.ID, "--notes", "vip")
	assert.Contains(t, out, "Company updated")
	stored, _ = st.Company(context.Background(), created.ID)
	assert.Equal(t, "vip", stored.Notes)
	assert.Equal(t, "555", stored.Phone)

	h.must("todos", "add", "ship", "it")
	out = h.must("todos", "list")
	assert.Contains(t, out, "ship it")

	h.must("companies", "delete", created.ID)
	out = h.must("companies", "list", "--json")
	assert.JSONEq(t, "[]", out)
}

func TestWorksOffline(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	h.must("login", "--email", models.AdminEmail, "--password", models.AdminPassword)

	out := h.must("companies", "create", "--name", "Offline Co")
	assert.Contains(t, out, "Offline Co")
	out = h.must("companies", "list")
	assert.Contains(t, out, "Offline Co")

	_, err := h.run("users", "sync")
	assert.Error(t, err, "sync needs the API")
}

func TestProducts(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")

	_, err := h.run("products", "buy", "4")
	assert.Error(t, err, "signed out")

	h.must("login", "--email", models.AdminEmail, "--password", models.AdminPassword)
	out := h.must("products", "list", "--category", "重型貨車")
	assert.Contains(t, out, "Volvo")
	assert.NotContains(t, out, "Toyota")

	_, err = h.run("products", "buy", "4", "--quantity", "2")
	assert.Error(t, err)

	out = h.must("products", "buy", "4", "--payment", "cash")
	assert.Contains(t, out, "Order confirmed, total 1200000")

	out = h.must("products", "get", "4", "--json")
	var got []models.Product
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Stock)
	assert.False(t, got[0].InStock)

	out = h.must("products", "orders")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "cash")
}
