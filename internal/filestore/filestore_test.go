package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/internal/apperr"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), password.New(password.SchemeSHA256))
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, s *Store, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	return string(raw)
}

func TestOpenSeedsAdmin(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.AdminEmail, users[0].Email)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Empty(t, users[0].PasswordHash)

	raw := readFile(t, s, UsersFile)
	assert.Contains(t, raw, "\n  {\n    \"id\"")
	assert.Contains(t, raw, password.Legacy(models.AdminPassword))
	assert.JSONEq(t, `{"todos":[],"companies":[]}`, readFile(t, s, DataFile))

	// reopening does not seed twice
	again, err := Open(s.Dir(), password.New(password.SchemeSHA256))
	require.NoError(t, err)
	users, err = again.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterAndLogin(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	sess, err := s.Register(ctx, models.RegisterRequest{Name: " Ann ", Email: "Ann@X.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", sess.Name)
	assert.Equal(t, "ann@x.io", sess.Email)
	assert.Equal(t, models.RoleMember, sess.Role)
	assert.NotEmpty(t, sess.Token)

	_, err = s.Register(ctx, models.RegisterRequest{Name: "Other", Email: "ANN@x.io", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Email already registered", apperr.Message(err))

	_, err = s.Register(ctx, models.RegisterRequest{Name: "  ", Email: "b@x.io", Password: "x"})
	assert.Equal(t, "All fields are required", apperr.Message(err))

	admin, err := s.Login(ctx, models.LoginRequest{Email: "ADMIN@ZXSGIT.LOCAL", Password: "admin321"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = s.Login(ctx, models.LoginRequest{Email: "ann@x.io", Password: "nope"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = s.Login(ctx, models.LoginRequest{Email: "ghost@x.io", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Login(ctx, models.LoginRequest{Email: "ann@x.io"})
	assert.Equal(t, "Email and password required", apperr.Message(err))
}

func TestUpdateAndDeleteUser(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	_, err := s.Register(ctx, models.RegisterRequest{Name: "Ann", Email: "ann@x.io", Password: "pw"})
	require.NoError(t, err)
	_, err = s.Register(ctx, models.RegisterRequest{Name: "Bob", Email: "bob@x.io", Password: "pw"})
	require.NoError(t, err)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	var ann, adm models.User
	for _, u := range users {
		switch u.Email {
		case "ann@x.io":
			ann = u
		case models.AdminEmail:
			adm = u
		}
	}

	_, err = s.UpdateUser(ctx, ann.ID, models.UserUpdateRequest{Email: "BOB@x.io"})
	assert.Equal(t, "Email already in use", apperr.Message(err))

	up, err := s.UpdateUser(ctx, ann.ID, models.UserUpdateRequest{Name: "Annie", Role: models.RoleAdmin, Password: "new"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", up.Name)
	assert.Equal(t, "ann@x.io", up.Email)
	assert.Equal(t, models.RoleAdmin, up.Role)
	_, err = s.Login(ctx, models.LoginRequest{Email: "ann@x.io", Password: "new"})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, adm.ID, models.UserUpdateRequest{Role: models.RoleMember})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.UpdateUser(ctx, "missing", models.UserUpdateRequest{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = s.DeleteUser(ctx, adm.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Cannot delete admin account", apperr.Message(err))

	require.NoError(t, s.DeleteUser(ctx, ann.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, ann.ID), apperr.ErrNotFound)
}

func TestConcurrentDelete(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	_, err := s.Register(ctx, models.RegisterRequest{Name: "Ann", Email: "ann@x.io", Password: "pw"})
	require.NoError(t, err)
	users, _ := s.Users(ctx)
	var id string
	for _, u := range users {
		if u.Email == "ann@x.io" {
			id = u.ID
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.DeleteUser(ctx, id)
		}(i)
	}
	wg.Wait()

	ok, notFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindNotFound:
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
}

func TestSyncUsers(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	_, err := s.Register(ctx, models.RegisterRequest{Name: "Ann", Email: "ann@x.io", Password: "old"})
	require.NoError(t, err)

	merged, err := s.SyncUsers(ctx, []models.StoredUser{
		{User: models.User{ID: "local-1", Name: "Ann B", Email: "ANN@x.io"}, Password: "fresh"},
		{User: models.User{ID: "local-2", Name: "Cat", Email: "cat@x.io", Role: models.RoleMember, CreatedAt: 3}, Password: "meow"},
		{User: models.User{ID: "local-3", Name: "Rogue", Email: "admin@zxsgit.local"}},
	})
	require.NoError(t, err)
	require.Len(t, merged, 3)

	_, err = s.Login(ctx, models.LoginRequest{Email: "ann@x.io", Password: "fresh"})
	require.NoError(t, err)
	sess, err := s.Login(ctx, models.LoginRequest{Email: "cat@x.io", Password: "meow"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, sess.Role)
	admin, err := s.Login(ctx, models.LoginRequest{Email: models.AdminEmail, Password: models.AdminPassword})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	assert.NotContains(t, readFile(t, s, UsersFile), `"password"`)
}

func TestPlaintextUsersFileIsUpgraded(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id":"u1","name":"Old","email":"old@x.io","password":"pw","role":"member","createdAt":1}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile), []byte(legacy), 0o644))

	s, err := Open(dir, password.New(password.SchemeSHA256))
	require.NoError(t, err)
	_, err = s.Login(context.Background(), models.LoginRequest{Email: "old@x.io", Password: "pw"})
	require.NoError(t, err)
}

func TestTodos(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	todos, err := s.Todos(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)

	in := []models.Todo{{ID: "t1", Text: "ship", UserEmail: "a@b.c", CreatedAt: 1}}
	require.NoError(t, s.SaveTodos(ctx, in))
	todos, err = s.Todos(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, todos)
}

func gallery(n int) []models.GalleryImage {
	out := make([]models.GalleryImage, n)
	for i := range out {
		out[i] = models.GalleryImage{ID: "img" + string(rune('1'+i)), Name: "g", DataURL: "data:,"}
	}
	return out
}

func TestCompanyLifecycle(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	_, _, err := s.CreateCompany(ctx, models.CompanyInput{Name: models.Str("  ")})
	assert.Equal(t, "Name is required", apperr.Message(err))

	g := gallery(6)
	media := []models.MediaItem{{ID: "m1"}, {ID: "m2", IsMain: true}, {ID: "m3", IsMain: true}}
	c, rejected, err := s.CreateCompany(ctx, models.CompanyInput{
		Name: models.Str(" Acme "), Gallery: &g, Media: &media,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, "Acme", c.Name)
	require.Len(t, c.Gallery, 5)
	assert.Equal(t, "img5", c.Gallery[4].ID)
	assert.Equal(t, []bool{false, true, false}, []bool{c.Media[0].IsMain, c.Media[1].IsMain, c.Media[2].IsMain})
	assert.Equal(t, models.UnknownOwnerEmail, c.OwnerEmail)
	assert.Equal(t, models.UnknownOwnerName, c.OwnerName)
	assert.Nil(t, c.RelatedUserID)
	assert.Equal(t, []string{}, c.RelatedUserIDs)

	up, _, err := s.UpdateCompany(ctx, c.ID, models.CompanyInput{
		Name:    models.Str(""),
		Phone:   models.Str("555"),
		Related: models.RelatedUserList{"u2", "u3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", up.Name)
	assert.Equal(t, "555", up.Phone)
	require.NotNil(t, up.RelatedUserID)
	assert.Equal(t, "u2", *up.RelatedUserID)
	assert.Len(t, up.Gallery, 5)

	got, err := s.Company(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, up, got)

	require.NoError(t, s.DeleteCompany(ctx, c.ID))
	_, err = s.Company(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCompany(ctx, c.ID), apperr.ErrNotFound)
	_, _, err = s.UpdateCompany(ctx, c.ID, models.CompanyInput{})
	assert.Equal(t, "Company not found", apperr.Message(err))
}

func TestDocumentsAreIndented(t *testing.T) {
	s := open(t)
	require.NoError(t, s.SaveTodos(context.Background(), []models.Todo{{ID: "x"}}))
	raw := readFile(t, s, DataFile)
	assert.True(t, strings.HasPrefix(raw, "{\n  \"todos\": ["))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Contains(t, doc, "companies")
}

func TestReady(t *testing.T) {
	s := open(t)
	assert.NoError(t, s.Ready(context.Background()))
}
