package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"todo-board/services/board/core"
)

func newPingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the todos service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			if err := app.Board.Ping(ctx); err != nil {
				return err
			}
			return app.out(cmd, map[string]string{"todos": "ok"})
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	var done bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the todos visible on the board date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := app.view()
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			var todos []core.Todo
			if done {
				todos, err = app.Board.ListDone(ctx, v)
			} else {
				todos, err = app.Board.ListVisible(ctx, v)
			}
			if err != nil {
				return err
			}
			return app.out(cmd, map[string]any{"todos": todos})
		},
	}
	cmd.Flags().BoolVar(&done, "done", false, "Only todos completed in the window")
	return cmd
}

func newCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <todo-id>",
		Short: "Mark a todo done; recurring todos get their next occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.view()
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			res, err := app.Board.Complete(ctx, v, args[0])
			if err != nil {
				return err
			}
			return app.out(cmd, res)
		},
	}
}

func newUncompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "uncomplete <todo-id>",
		Short: "Mark a done todo incomplete again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.view()
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			t, err := app.Board.Uncomplete(ctx, v, args[0])
			if err != nil {
				return err
			}
			return app.out(cmd, t)
		},
	}
}

func newCategoriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the user's categories in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := app.view()
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			cats, err := app.Board.Categories(ctx, v.UserID)
			if err != nil {
				return err
			}
			return app.out(cmd, map[string]any{"categories": cats})
		},
	}
}

func direction(up, down bool) (int, error) {
	if up == down {
		return 0, errors.New("provide exactly one of --up or --down")
	}
	if up {
		return -1, nil
	}
	return 1, nil
}

func newMoveTodoCmd(app *App) *cobra.Command {
	var up, down bool
	cmd := &cobra.Command{
		Use:   "move-todo <category-id> <todo-id>",
		Short: "Move a todo one place up or down within its category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := direction(up, down)
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			if err := app.Board.MoveTodo(ctx, args[0], args[1], delta); err != nil {
				return err
			}
			todos, err := app.Board.CategoryTodos(ctx, args[0])
			if err != nil {
				return err
			}
			return app.out(cmd, map[string]any{"todos": todos})
		},
	}
	cmd.Flags().BoolVar(&up, "up", false, "Move up")
	cmd.Flags().BoolVar(&down, "down", false, "Move down")
	return cmd
}

func newMoveCategoryCmd(app *App) *cobra.Command {
	var up, down bool
	cmd := &cobra.Command{
		Use:   "move-category <category-id>",
		Short: "Move a category one place up or down on the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := direction(up, down)
			if err != nil {
				return err
			}
			v, err := app.view()
			if err != nil {
				return err
			}
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			if err := app.Board.MoveCategory(ctx, v.UserID, args[0], delta); err != nil {
				return err
			}
			cats, err := app.Board.Categories(ctx, v.UserID)
			if err != nil {
				return err
			}
			return app.out(cmd, map[string]any{"categories": cats})
		},
	}
	cmd.Flags().BoolVar(&up, "up", false, "Move up")
	cmd.Flags().BoolVar(&down, "down", false, "Move down")
	return cmd
}

func newReorderTodosCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder-todos <category-id> <todo-id>...",
		Short: "Replace the order of a category; every todo must be listed once",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.withTimeout(cmd)
			defer cancel()

			if err := app.Board.ReorderTodos(ctx, args[0], args[1:]); err != nil {
				return err
			}
			return app.out(cmd, map[string]any{"ok": true})
		},
	}
}
