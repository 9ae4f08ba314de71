package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"todo-board/services/todos/core"
)

// stubEngine panics on any method without a stub function.
type stubEngine struct {
	core.Todos

	listVisibleFn  func(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error)
	completeFn     func(ctx context.Context, id string, now time.Time) (core.CompleteResult, error)
	getTodoFn      func(ctx context.Context, id string) (core.Todo, error)
	getCategoryFn  func(ctx context.Context, id string) (core.Category, error)
	reorderTodosFn func(ctx context.Context, categoryID string, ordered []string) error
}

func (s *stubEngine) ListVisible(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error) {
	return s.listVisibleFn(ctx, userID, ref, g)
}

func (s *stubEngine) Complete(ctx context.Context, id string, now time.Time) (core.CompleteResult, error) {
	return s.completeFn(ctx, id, now)
}

func (s *stubEngine) GetTodo(ctx context.Context, id string) (core.Todo, error) {
	if s.getTodoFn == nil {
		return core.Todo{}, errors.New("unexpected GetTodo call")
	}
	return s.getTodoFn(ctx, id)
}

func (s *stubEngine) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return s.getCategoryFn(ctx, id)
}

func (s *stubEngine) ReorderTodos(ctx context.Context, categoryID string, ordered []string) error {
	return s.reorderTodosFn(ctx, categoryID, ordered)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var ref = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCacheListVisibleMissThenHit(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	expected := []core.Todo{{ID: "t1", Name: "Water plants", Status: core.Incomplete, StartDate: start, UserID: "u1"}}

	var calls int
	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(_ context.Context, userID string, _ time.Time, _ core.Granularity) ([]core.Todo, error) {
			calls++
			if userID != "u1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return append([]core.Todo(nil), expected...), nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		got, err := c.ListVisible(ctx, "u1", ref, core.Day)
		if err != nil {
			t.Fatalf("ListVisible: %v", err)
		}
		if len(got) != 1 || got[0].ID != "t1" || !got[0].StartDate.Equal(start) {
			t.Fatalf("unexpected todos: %#v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 call to backend, got %d", calls)
	}
	if ttl := mr.TTL(cacheKey("u1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	// another hour of the same day hits the same entry; another day does not
	if _, err := c.ListVisible(ctx, "u1", ref.Add(5*time.Hour), core.Day); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListVisible(ctx, "u1", ref.AddDate(0, 0, 1), core.Day); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls to backend, got %d", calls)
	}
}

func TestCacheCompleteEvictsOwner(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	var calls int
	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(context.Context, string, time.Time, core.Granularity) ([]core.Todo, error) {
			calls++
			return []core.Todo{}, nil
		},
		completeFn: func(_ context.Context, id string, now time.Time) (core.CompleteResult, error) {
			return core.CompleteResult{Todo: core.Todo{ID: id, UserID: "u1", Status: core.Done, CompletedDateTime: &now}}, nil
		},
	}, client, time.Minute)

	if _, err := c.ListVisible(ctx, "u1", ref, core.Day); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(cacheKey("u1")) {
		t.Fatal("expected cached entry")
	}

	if _, err := c.Complete(ctx, "t1", ref); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatal("cache not evicted after completion")
	}

	if _, err := c.ListVisible(ctx, "u1", ref, core.Day); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected re-fetch after eviction, calls=%d", calls)
	}
}

func TestCacheLoadOverlappingCompletionNotStored(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		status = core.Incomplete
		calls  int
	)
	started := make(chan struct{})
	release := make(chan struct{})
	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(context.Context, string, time.Time, core.Granularity) ([]core.Todo, error) {
			mu.Lock()
			calls++
			first := calls == 1
			st := status
			mu.Unlock()
			if first {
				close(started)
				<-release
			}
			return []core.Todo{{ID: "t1", UserID: "u1", Status: st}}, nil
		},
		completeFn: func(_ context.Context, id string, now time.Time) (core.CompleteResult, error) {
			mu.Lock()
			status = core.Done
			mu.Unlock()
			return core.CompleteResult{Todo: core.Todo{ID: id, UserID: "u1", Status: core.Done, CompletedDateTime: &now}}, nil
		},
	}, client, time.Minute)

	loaded := make(chan error, 1)
	go func() {
		_, err := c.ListVisible(ctx, "u1", ref, core.Day)
		loaded <- err
	}()

	<-started
	if _, err := c.Complete(ctx, "t1", ref); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	close(release)
	if err := <-loaded; err != nil {
		t.Fatalf("ListVisible: %v", err)
	}

	if mr.Exists(cacheKey("u1")) {
		t.Fatal("list read before the completion was cached after it")
	}
	got, err := c.ListVisible(ctx, "u1", ref, core.Day)
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if len(got) != 1 || got[0].Status != core.Done {
		t.Fatalf("expected completed todo after settle, got %#v", got)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls to backend, got %d", calls)
	}
}

func TestCacheReorderEvictsEvenOnError(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	mismatch := &core.OrderMismatchError{Scope: core.Scope{Kind: core.CategoryTodos, ID: "c1"}, Missing: []string{"a"}}
	c := New(discardLogger(), &stubEngine{
		getCategoryFn: func(_ context.Context, id string) (core.Category, error) {
			return core.Category{ID: id, UserID: "u1"}, nil
		},
		reorderTodosFn: func(context.Context, string, []string) error { return mismatch },
	}, client, time.Minute)

	mr.HSet(cacheKey("u1"), "visible|DAY|0|1", "[]")

	err := c.ReorderTodos(ctx, "c1", []string{"b"})
	if !errors.Is(err, core.ErrOrderMismatch) {
		t.Fatalf("expected ErrOrderMismatch, got %v", err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatal("cache not evicted")
	}
}

func TestCacheCorruptPayloadFallsBack(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	expected := []core.Todo{{ID: "t1", Status: core.Incomplete}}
	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(context.Context, string, time.Time, core.Granularity) ([]core.Todo, error) {
			return expected, nil
		},
	}, client, time.Minute)

	field := windowField(kindVisible, core.Day, core.Resolve(ref, core.Day))
	mr.HSet(cacheKey("u1"), field, "{not json")

	got, err := c.ListVisible(ctx, "u1", ref, core.Day)
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"t1"}) {
		t.Fatalf("unexpected todos %#v", got)
	}
}

func TestCacheRedisDownFallsBack(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(context.Context, string, time.Time, core.Granularity) ([]core.Todo, error) {
			return []core.Todo{{ID: "t1"}}, nil
		},
	}, client, time.Minute)

	got, err := c.ListVisible(context.Background(), "u1", ref, core.Day)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListVisible = %v, %v", got, err)
	}
}

func TestCacheBackendErrorNotCached(t *testing.T) {
	mr, client := setupRedis(t)

	c := New(discardLogger(), &stubEngine{
		listVisibleFn: func(context.Context, string, time.Time, core.Granularity) ([]core.Todo, error) {
			return nil, &core.TransientStoreError{Op: "list candidates", Err: errors.New("refused")}
		},
	}, client, time.Minute)

	_, err := c.ListVisible(context.Background(), "u1", ref, core.Day)
	if !errors.Is(err, core.ErrTransientStore) {
		t.Fatalf("expected ErrTransientStore, got %v", err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatal("error result cached")
	}
}

func TestWindowFieldSeparatesZones(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*3600)
	utc := windowField(kindVisible, core.Day, core.Resolve(ref, core.Day))
	local := windowField(kindVisible, core.Day, core.Resolve(ref.In(loc), core.Day))
	if utc == local {
		t.Fatalf("same field %q for different zones", utc)
	}
}

func ids(todos []core.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}
