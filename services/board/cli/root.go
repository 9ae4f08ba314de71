package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"todo-board/services/board/core"
)

// App is what every command works with. Board is built lazily by Connect
// unless a caller already set it.
type App struct {
	Log     *slog.Logger
	Board   *core.Board
	Connect func() (*core.Board, error)

	UserID      string
	TZ          string
	Date        string
	Granularity string
	Timeout     time.Duration
	Pretty      bool
}

func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "board",
		Short:         "Todo board client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if app.Board != nil {
				return nil
			}
			if app.Connect == nil {
				return errors.New("no todos service configured")
			}
			b, err := app.Connect()
			if err != nil {
				return err
			}
			app.Board = b
			app.Log.Debug("board ready", "command", cmd.Name(), "user", app.UserID, "tz", app.TZ)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&app.UserID, "user", app.UserID, "User id")
	cmd.PersistentFlags().StringVar(&app.TZ, "tz", app.TZ, "IANA time zone of the board calendar")
	cmd.PersistentFlags().StringVar(&app.Date, "date", app.Date, "Board date YYYY-MM-DD (default today)")
	cmd.PersistentFlags().StringVar(&app.Granularity, "granularity", "DAY", "DAY|WEEK|MONTH|YEAR")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newPingCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newCompleteCmd(app))
	cmd.AddCommand(newUncompleteCmd(app))
	cmd.AddCommand(newCategoriesCmd(app))
	cmd.AddCommand(newMoveTodoCmd(app))
	cmd.AddCommand(newMoveCategoryCmd(app))
	cmd.AddCommand(newReorderTodosCmd(app))

	return cmd
}

func (app *App) view() (core.View, error) {
	if app.UserID == "" {
		return core.View{}, fmt.Errorf("%w: --user is required", core.ErrInvalidArgs)
	}
	g, err := core.ParseGranularity(app.Granularity)
	if err != nil {
		return core.View{}, err
	}
	date := app.Date
	if date == "" {
		loc := time.UTC
		if app.TZ != "" {
			if loc, err = time.LoadLocation(app.TZ); err != nil {
				return core.View{}, fmt.Errorf("%w: unknown tz %q", core.ErrInvalidArgs, app.TZ)
			}
		}
		date = time.Now().In(loc).Format("2006-01-02")
	}
	return core.View{UserID: app.UserID, Date: date, Granularity: g, TZ: app.TZ}, nil
}

func (app *App) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if app.Timeout > 0 {
		return context.WithTimeout(ctx, app.Timeout)
	}
	return context.WithCancel(ctx)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (app *App) out(cmd *cobra.Command, v any) error {
	return writeJSON(cmd.OutOrStdout(), v, app.Pretty)
}
