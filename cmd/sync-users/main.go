// Command sync-users folds a users backup (for example an export of a
// browser's local cache) into the server's users.json.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"zxsgit/config"
	"zxsgit/internal/filestore"
	"zxsgit/internal/logs"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/internal/termui"
)

const backupName = "users-backup.json"

type options struct {
	dataDir string
	backup  string
	scheme  string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "sync-users",
		Short: "Merge a users backup into users.json",
		Long: `Merge a users backup into the API server's users.json.

Stored users keep their id, role and creation time; backed-up names and
credentials overlay them by email. Unknown users are added, plaintext
passwords are hashed, and the administrator account is ensured.
A missing backup file is not an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&o.dataDir, "data-dir", "", "directory holding users.json (default: data.dir from config)")
	cmd.Flags().StringVar(&o.backup, "backup", "", "backup file (default: <data-dir>/"+backupName+")")
	cmd.Flags().StringVar(&o.scheme, "scheme", "", "hash scheme for plaintext passwords (default: auth.password_scheme)")
	return cmd
}

// readBackup accepts either a bare array or {"users":[...]}.
func readBackup(path string) ([]models.StoredUser, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logs.Logger.WithField("file", path).Info("no backup file, nothing to merge")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []models.StoredUser
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped models.SyncUsersRequest
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return wrapped.Users, nil
}

func run(ctx context.Context, o *options, out io.Writer) error {
	if o.dataDir == "" || o.scheme == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if o.dataDir == "" {
			o.dataDir = cfg.Data.Dir
		}
		if o.scheme == "" {
			o.scheme = cfg.Auth.PasswordScheme
		}
	}
	if o.backup == "" {
		o.backup = filepath.Join(o.dataDir, backupName)
	}
	scheme := password.Scheme(o.scheme)
	if !scheme.Valid() {
		return fmt.Errorf("unknown password scheme %q", o.scheme)
	}

	backup, err := readBackup(o.backup)
	if err != nil {
		return err
	}
	st, err := filestore.Open(o.dataDir, password.New(scheme))
	if err != nil {
		return err
	}
	users, err := st.SyncUsers(ctx, backup)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Synced %d users (%d from backup) into %s\n", len(users), len(backup), filepath.Join(st.Dir(), filestore.UsersFile))
	t := termui.NewTable("EMAIL", "NAME", "ROLE")
	for _, u := range users {
		t.AddRow(u.Email, u.Name, string(u.Role))
	}
	return t.Render(out)
}

func main() {
	config.LoadDotenv()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "sync-users:", err)
		os.Exit(1)
	}
}
