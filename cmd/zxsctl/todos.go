package main

import (
	"strings"

	"github.com/spf13/cobra"

	"zxsgit/internal/models"
	"zxsgit/internal/termui"
)

func (c *cli) printTodos(list []models.Todo) error {
	return c.print(list, []string{"ID", "DONE", "TEXT", "BY"}, func(tbl *termui.Table) {
		for _, t := range list {
			mark := "[ ]"
			if t.Done {
				mark = "[x]"
			}
			tbl.AddRow(t.ID, mark, t.Text, t.UserEmail)
		}
	})
}

func (c *cli) todosCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "todos", Aliases: []string{"todo"}, Short: "Shared todo board"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Todos.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printTodos(list)
		},
	}

	add := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.app.Todos.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printTodos([]models.Todo{t})
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between open and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.app.Todos.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printTodos([]models.Todo{t})
		},
	}

	remove := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Todos.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.say("Todo removed")
			return nil
		},
	}

	cmd.AddCommand(list, add, toggle, remove)
	return cmd
}
