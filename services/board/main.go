package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"todo-board/services/board/adapters/todos"
	"todo-board/services/board/cli"
	"todo-board/services/board/config"
	"todo-board/services/board/core"
)

func main() {
	configPath := os.Getenv("BOARD_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	var client *todos.Client
	app := &cli.App{
		Log:     log,
		UserID:  cfg.UserID,
		TZ:      cfg.TZ,
		Timeout: cfg.Todos.Timeout,
		Connect: func() (*core.Board, error) {
			c, err := todos.NewClient(cfg.Todos.Address, cfg.Todos.Timeout, log)
			if err != nil {
				return nil, fmt.Errorf("cannot init todos adapter: %w", err)
			}
			client = c
			return core.NewBoard(log, c), nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCmd(app).ExecuteContext(ctx)
	if client != nil {
		_ = client.Close()
	}
	if err != nil {
		log.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func mustMakeLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
