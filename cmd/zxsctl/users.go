package main

import (
	"github.com/spf13/cobra"

	"zxsgit/internal/models"
	"zxsgit/internal/termui"
)

func (c *cli) printUsers(users []models.User) error {
	return c.print(users, []string{"ID", "EMAIL", "NAME", "ROLE"}, func(t *termui.Table) {
		for _, u := range users {
			t.AddRow(u.ID, u.Email, u.Name, string(u.Role))
		}
	})
}

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage users (admin)"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := c.app.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printUsers(users)
		},
	}

	var upd models.UserUpdateRequest
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a user; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.app.Users.UpdateByAdmin(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			c.say("User updated")
			return c.printUsers([]models.User{u})
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "display name")
	update.Flags().StringVar(&upd.Email, "email", "", "email")
	update.Flags().StringVar((*string)(&upd.Role), "role", "", "admin or member")
	update.Flags().StringVar(&upd.Password, "password", "", "password")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Users.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.say("User deleted")
			return nil
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Upload locally created users to the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := c.app.Users.Sync(cmd.Context())
			if err != nil {
				return err
			}
			c.say("Users synced")
			return c.printUsers(users)
		},
	}

	cmd.AddCommand(list, update, del, sync)
	return cmd
}
