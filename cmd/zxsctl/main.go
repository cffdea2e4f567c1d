// Command zxsctl is a command-line client for the ZXSGit API. Like the web
// client it keeps a session and caches in local storage and keeps working
// when the API is unreachable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"zxsgit/config"
	"zxsgit/internal/appctx"
	"zxsgit/internal/logs"
	"zxsgit/internal/termui"
)

type cli struct {
	app    *appctx.Context
	out    io.Writer
	asJSON bool

	// open builds the application context; replaced in tests
	open func(ctx context.Context) (*appctx.Context, error)
}

func defaultOpen(ctx context.Context) (*appctx.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File})
	return appctx.New(ctx, cfg, appctx.Options{})
}

func newRootCmd(c *cli) *cobra.Command {
	if c.open == nil {
		c.open = defaultOpen
	}
	root := &cobra.Command{
		Use:           "zxsctl",
		Short:         "ZXSGit client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			if c.app != nil {
				return nil
			}
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		c.registerCmd(), c.loginCmd(), c.logoutCmd(), c.whoamiCmd(), c.profileCmd(),
		c.usersCmd(), c.companiesCmd(), c.todosCmd(), c.productsCmd(),
	)
	return root
}

// print writes v as JSON with --json, otherwise as a table filled by rows.
func (c *cli) print(v any, headers []string, rows func(t *termui.Table)) error {
	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	t := termui.NewTable(headers...)
	rows(t)
	return t.Render(c.out)
}

func (c *cli) say(format string, args ...any) {
	if !c.asJSON {
		fmt.Fprintf(c.out, format+"\n", args...)
	}
}

func main() {
	config.LoadDotenv()
	if err := newRootCmd(&cli{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "zxsctl:", err)
		os.Exit(1)
	}
}
