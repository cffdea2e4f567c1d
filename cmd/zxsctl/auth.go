package main

import (
	"github.com/spf13/cobra"

	"zxsgit/internal/apperr"
	"zxsgit/internal/models"
	"zxsgit/internal/services"
	"zxsgit/internal/termui"
)

func (c *cli) printSession(s models.Session) error {
	return c.print(s, []string{"NAME", "EMAIL", "ROLE"}, func(t *termui.Table) {
		t.AddRow(s.Name, s.Email, string(s.Role))
	})
}

func (c *cli) registerCmd() *cobra.Command {
	var in services.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Confirm == "" {
				in.Confirm = in.Password
			}
			s, err := c.app.Users.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.say("Account created")
			return c.printSession(s)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&in.Confirm, "confirm", "", "password confirmation (default: --password)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var in services.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.app.Users.Login(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.say("Signed in")
			return c.printSession(s)
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.Users.Logout(cmd.Context())
			c.say("Signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ok := c.app.Session.Current(cmd.Context())
			if !ok {
				return apperr.Unauthorized("Not signed in")
			}
			return c.printSession(s)
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	var in services.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your own name, email or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, ok := c.app.Session.Current(cmd.Context())
			if !ok {
				return apperr.Unauthorized("Not signed in")
			}
			if in.Name == "" {
				in.Name = cur.Name
			}
			if in.Email == "" {
				in.Email = cur.Email
			}
			s, err := c.app.Users.UpdateSelf(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.say("Profile updated")
			return c.printSession(s)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "new display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "new email")
	cmd.Flags().StringVar(&in.Password, "password", "", "new password")
	return cmd
}
