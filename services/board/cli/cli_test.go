package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"todo-board/services/board/core"
)

type fakeTodos struct {
	core.Todos

	todos     []core.Todo
	lastView  core.View
	lastOrder []string
	lastNow   time.Time
}

func (f *fakeTodos) ListVisible(_ context.Context, v core.View) ([]core.Todo, error) {
	f.lastView = v
	return slices.Clone(f.todos), nil
}

func (f *fakeTodos) ListTodos(context.Context, string) ([]core.Todo, error) {
	return slices.Clone(f.todos), nil
}

func (f *fakeTodos) ReorderTodos(_ context.Context, _ string, ids []string) error {
	f.lastOrder = ids
	return nil
}

func (f *fakeTodos) Complete(_ context.Context, id string, now time.Time) (core.CompleteResult, error) {
	f.lastNow = now
	next := core.Todo{ID: id + "-next", Status: core.Incomplete, StartDate: now.AddDate(0, 0, 7)}
	return core.CompleteResult{Todo: core.Todo{ID: id, Status: core.Done}, Next: &next}, nil
}

func run(t *testing.T, api core.Todos, args ...string) (string, error) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	app := &App{
		Log:    log,
		Board:  core.NewBoard(log, api, core.WithClock(func() time.Time { return now })),
		UserID: "u1",
	}

	var out bytes.Buffer
	cmd := NewRootCmd(app)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	t.Parallel()

	api := &fakeTodos{todos: []core.Todo{{ID: "a", Name: "A", Status: core.Incomplete}}}
	out, err := run(t, api, "list", "--date", "2024-01-03", "--granularity", "WEEK", "--tz", "Europe/Berlin")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := core.View{UserID: "u1", Date: "2024-01-03", Granularity: core.Week, TZ: "Europe/Berlin"}
	if api.lastView != want {
		t.Fatalf("unexpected view %#v", api.lastView)
	}

	var resp struct {
		Todos []core.Todo `json:"todos"`
	}
	if err := sonic.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(resp.Todos) != 1 || resp.Todos[0].ID != "a" {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestListCommandRejectsGranularity(t *testing.T) {
	t.Parallel()

	_, err := run(t, &fakeTodos{}, "list", "--granularity", "fortnight")
	if !errors.Is(err, core.ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestCompleteCommand(t *testing.T) {
	t.Parallel()

	api := &fakeTodos{}
	out, err := run(t, api, "complete", "water", "--date", "2024-01-03")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	var res core.CompleteResult
	if err := sonic.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Next == nil || res.Next.ID != "water-next" {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestMoveTodoCommand(t *testing.T) {
	t.Parallel()

	api := &fakeTodos{todos: []core.Todo{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	if _, err := run(t, api, "move-todo", "c1", "c", "--up"); err != nil {
		t.Fatalf("move-todo: %v", err)
	}
	if !slices.Equal(api.lastOrder, []string{"a", "c", "b"}) {
		t.Fatalf("unexpected order %v", api.lastOrder)
	}
}

func TestMoveTodoCommandBounds(t *testing.T) {
	t.Parallel()

	api := &fakeTodos{todos: []core.Todo{{ID: "a"}, {ID: "b"}}}
	if _, err := run(t, api, "move-todo", "c1", "a", "--up"); !errors.Is(err, core.ErrCannotMove) {
		t.Fatalf("expected ErrCannotMove, got %v", err)
	}
	if _, err := run(t, api, "move-todo", "c1", "a"); err == nil {
		t.Fatal("expected error without direction")
	}
	if _, err := run(t, api, "move-todo", "c1", "a", "--up", "--down"); err == nil {
		t.Fatal("expected error with both directions")
	}
	if api.lastOrder != nil {
		t.Fatalf("server called: %v", api.lastOrder)
	}
}

func TestUserRequired(t *testing.T) {
	t.Parallel()

	_, err := run(t, &fakeTodos{}, "list", "--user", "")
	if !errors.Is(err, core.ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}
