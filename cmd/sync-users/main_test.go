package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/internal/filestore"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
)

func TestSyncFromBackup(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, backupName)
	require.NoError(t, os.WriteFile(backup, []byte(`[
		{"id":"l1","name":"Cat","email":"CAT@x.io","password":"meow","role":"member","createdAt":5},
		{"id":"l2","name":"","email":""}
	]`), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data-dir", dir, "--scheme", "sha256"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Synced 2 users (2 from backup)")
	assert.Contains(t, out.String(), "cat@x.io")
	assert.Contains(t, out.String(), models.AdminEmail)

	st, err := filestore.Open(dir, password.New(password.SchemeSHA256))
	require.NoError(t, err)
	_, err = st.Login(context.Background(), models.LoginRequest{Email: "cat@x.io", Password: "meow"})
	assert.NoError(t, err)
}

func TestMissingBackupStillSeedsAdmin(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &options{dataDir: dir, scheme: "sha256"}, &out))
	assert.Contains(t, out.String(), "Synced 1 users (0 from backup)")
	_, err := os.Stat(filepath.Join(dir, filestore.UsersFile))
	assert.NoError(t, err)
}

func TestWrappedBackup(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(t.TempDir(), "b.json")
	require.NoError(t, os.WriteFile(backup, []byte(`{"users":[{"name":"Dee","email":"dee@x.io","password":"x"}]}`), 0o644))
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &options{dataDir: dir, backup: backup, scheme: "sha256"}, &out))
	assert.Contains(t, out.String(), "dee@x.io")
}

func TestRejectsUnknownScheme(t *testing.T) {
	err := run(context.Background(), &options{dataDir: t.TempDir(), scheme: "md5"}, &bytes.Buffer{})
	assert.Error(t, err)
}
