package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "todo-board/todos"

type Service struct {
	db    DB
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the clock used for created timestamps and for
// completions that do not carry their own instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(db DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "todos."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Visibility

func (s *Service) ListVisible(ctx context.Context, userID string, ref time.Time, g Granularity) (out []Todo, err error) {
	ctx, span := startSpan(ctx, "ListVisible",
		attribute.String("user.id", userID), attribute.String("granularity", string(g)))
	defer func() { endSpan(span, err) }()

	w, err := s.window(userID, ref, g)
	if err != nil {
		return nil, err
	}
	cands, err := s.db.ListCandidates(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	out = FilterVisible(cands, w)
	span.SetAttributes(attribute.Int("todos.returned", len(out)))
	return out, nil
}

// ListDone returns the completed todos of the period, the "done" ledger.
func (s *Service) ListDone(ctx context.Context, userID string, ref time.Time, g Granularity) (out []Todo, err error) {
	ctx, span := startSpan(ctx, "ListDone",
		attribute.String("user.id", userID), attribute.String("granularity", string(g)))
	defer func() { endSpan(span, err) }()

	w, err := s.window(userID, ref, g)
	if err != nil {
		return nil, err
	}
	cands, err := s.db.ListCandidates(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	out = make([]Todo, 0, len(cands))
	for _, t := range FilterVisible(cands, w) {
		if t.Status == Done {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) window(userID string, ref time.Time, g Granularity) (Window, error) {
	if strings.TrimSpace(userID) == "" {
		return Window{}, ErrInvalidArgs
	}
	if !g.valid() {
		return Window{}, fmt.Errorf("%w: unknown granularity %q", ErrInvalidArgs, g)
	}
	return Resolve(ref, g), nil
}

// Completion

// Complete marks the todo DONE at now. For a recurring todo the next
// occurrence is inserted in the same transaction. Completing a todo that is
// already DONE changes nothing and generates nothing.
func (s *Service) Complete(ctx context.Context, id string, now time.Time) (res CompleteResult, err error) {
	ctx, span := startSpan(ctx, "Complete", attribute.String("todo.id", id))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return CompleteResult{}, ErrInvalidArgs
	}
	if now.IsZero() {
		now = s.now()
	}
	// the store keeps completion instants in UTC milliseconds
	now = now.Truncate(time.Millisecond)
	at := now.UTC()

	err = s.db.InTx(ctx, func(tx Store) error {
		cur, err := tx.GetTodo(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == Done {
			res = CompleteResult{Todo: cur}
			return nil
		}

		var nextStart time.Time
		if cur.IsRecurring() {
			if nextStart, err = Advance(now, *cur.Schedule); err != nil {
				return err
			}
		}

		changed, err := tx.MarkDone(ctx, id, at)
		if err != nil {
			return err
		}
		if !changed {
			// completed by someone else between the read and the update
			cur, err = tx.GetTodo(ctx, id)
			if err != nil {
				return err
			}
			res = CompleteResult{Todo: cur}
			return nil
		}

		cur.Status = Done
		cur.CompletedDateTime = &at
		res = CompleteResult{Todo: cur}

		if !cur.IsRecurring() {
			return nil
		}

		siblings, err := tx.ListTodos(ctx, cur.CategoryID)
		if err != nil {
			return err
		}
		next := nextOccurrence(cur, nextStart)
		next.ID = s.newID()
		next.SortOrder = len(siblings)
		next.Created = s.now()
		if err := tx.CreateTodo(ctx, next); err != nil {
			return err
		}
		res.Next = &next
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}
	span.SetAttributes(attribute.Bool("todo.next_generated", res.Next != nil))
	return res, nil
}

// Uncomplete reverts a DONE todo to INCOMPLETE. An occurrence generated by
// the earlier completion stays where it is.
func (s *Service) Uncomplete(ctx context.Context, id string) (t Todo, err error) {
	ctx, span := startSpan(ctx, "Uncomplete", attribute.String("todo.id", id))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return Todo{}, ErrInvalidArgs
	}

	err = s.db.InTx(ctx, func(tx Store) error {
		cur, err := tx.GetTodo(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == Incomplete {
			t = cur
			return nil
		}
		if _, err := tx.MarkIncomplete(ctx, id); err != nil {
			return err
		}
		cur.Status = Incomplete
		cur.CompletedDateTime = nil
		t = cur
		return nil
	})
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

// Ordering

// ReorderTodos replaces the order of a category's todos with ordered, which
// must be a permutation of the todos currently in the category.
func (s *Service) ReorderTodos(ctx context.Context, categoryID string, ordered []string) (err error) {
	ctx, span := startSpan(ctx, "ReorderTodos",
		attribute.String("category.id", categoryID), attribute.Int("ids", len(ordered)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(categoryID) == "" {
		return ErrInvalidArgs
	}

	return s.db.InTx(ctx, func(tx Store) error {
		if _, err := tx.GetCategory(ctx, categoryID); err != nil {
			return err
		}
		todos, err := tx.ListTodos(ctx, categoryID)
		if err != nil {
			return err
		}
		scope := Scope{Kind: CategoryTodos, ID: categoryID}
		if err := CheckPermutation(scope, ids(todos), ordered); err != nil {
			return err
		}
		return tx.SetTodoOrder(ctx, categoryID, ordered)
	})
}

// ReorderCategories replaces the order of a user's categories.
func (s *Service) ReorderCategories(ctx context.Context, userID string, ordered []string) (err error) {
	ctx, span := startSpan(ctx, "ReorderCategories",
		attribute.String("user.id", userID), attribute.Int("ids", len(ordered)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return ErrInvalidArgs
	}

	return s.db.InTx(ctx, func(tx Store) error {
		cats, err := tx.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		scope := Scope{Kind: UserBoard, ID: userID}
		if err := CheckPermutation(scope, ids(cats), ordered); err != nil {
			return err
		}
		return tx.SetCategoryOrder(ctx, userID, ordered)
	})
}

// Categories

func (s *Service) ListCategories(ctx context.Context, userID string) ([]Category, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidArgs
	}
	return s.db.ListCategories(ctx, userID)
}

func (s *Service) CreateCategory(ctx context.Context, nc NewCategory) (c Category, err error) {
	ctx, span := startSpan(ctx, "CreateCategory", attribute.String("user.id", nc.UserID))
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(nc.Name)
	if strings.TrimSpace(nc.UserID) == "" || name == "" || nc.MaxPerDay < 0 {
		return Category{}, ErrInvalidArgs
	}

	err = s.db.InTx(ctx, func(tx Store) error {
		siblings, err := tx.ListCategories(ctx, nc.UserID)
		if err != nil {
			return err
		}
		c = Category{
			ID:          s.newID(),
			UserID:      nc.UserID,
			Name:        name,
			Description: strings.TrimSpace(nc.Description),
			Color:       strings.TrimSpace(nc.Color),
			MaxPerDay:   nc.MaxPerDay,
			SortOrder:   len(siblings),
			Created:     s.now(),
		}
		return tx.CreateCategory(ctx, c)
	})
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

// DeleteCategory removes the category with its todos and closes the gap it
// leaves in the board order.
func (s *Service) DeleteCategory(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteCategory", attribute.String("category.id", id))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return ErrInvalidArgs
	}

	return s.db.InTx(ctx, func(tx Store) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCategory(ctx, id); err != nil {
			return err
		}
		rest, err := tx.ListCategories(ctx, c.UserID)
		if err != nil {
			return err
		}
		return tx.SetCategoryOrder(ctx, c.UserID, Compact(rest))
	})
}

// Todos

func (s *Service) CreateTodo(ctx context.Context, nt NewTodo) (t Todo, err error) {
	ctx, span := startSpan(ctx, "CreateTodo", attribute.String("category.id", nt.CategoryID))
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(nt.Name)
	if strings.TrimSpace(nt.CategoryID) == "" || name == "" {
		return Todo{}, ErrInvalidArgs
	}
	if nt.Size == "" {
		nt.Size = Medium
	}
	if nt.Priority == "" {
		nt.Priority = Normal
	}
	if !nt.Size.valid() {
		return Todo{}, fmt.Errorf("%w: unknown size %q", ErrInvalidArgs, nt.Size)
	}
	if !nt.Priority.valid() {
		return Todo{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgs, nt.Priority)
	}
	if nt.Schedule != nil {
		if err := nt.Schedule.Validate(); err != nil {
			return Todo{}, err
		}
	}

	now := s.now()
	if nt.StartDate.IsZero() {
		nt.StartDate = now
	}

	err = s.db.InTx(ctx, func(tx Store) error {
		c, err := tx.GetCategory(ctx, nt.CategoryID)
		if err != nil {
			return err
		}
		siblings, err := tx.ListTodos(ctx, nt.CategoryID)
		if err != nil {
			return err
		}
		t = Todo{
			ID:           s.newID(),
			CategoryID:   c.ID,
			CategoryName: c.Name,
			UserID:       c.UserID,
			Name:         name,
			Notes:        strings.TrimSpace(nt.Notes),
			Size:         nt.Size,
			Priority:     nt.Priority,
			Status:       Incomplete,
			StartDate:    nt.StartDate,
			SortOrder:    len(siblings),
			Schedule:     nt.Schedule,
			Created:      now,
		}
		return tx.CreateTodo(ctx, t)
	})
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

func (s *Service) GetTodo(ctx context.Context, id string) (Todo, error) {
	if strings.TrimSpace(id) == "" {
		return Todo{}, ErrInvalidArgs
	}
	return s.db.GetTodo(ctx, id)
}

// ListTodos returns every live todo of a category in board order, visible or
// not. Reorders must be a permutation of exactly this list.
func (s *Service) ListTodos(ctx context.Context, categoryID string) (out []Todo, err error) {
	ctx, span := startSpan(ctx, "ListTodos", attribute.String("category.id", categoryID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(categoryID) == "" {
		return nil, ErrInvalidArgs
	}
	if _, err := s.db.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.db.ListTodos(ctx, categoryID)
}

// GetCategory is used by transports that need the owner of a category.
func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	if strings.TrimSpace(id) == "" {
		return Category{}, ErrInvalidArgs
	}
	return s.db.GetCategory(ctx, id)
}

// DeleteTodo removes the todo and renumbers what is left in its category.
func (s *Service) DeleteTodo(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteTodo", attribute.String("todo.id", id))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return ErrInvalidArgs
	}

	return s.db.InTx(ctx, func(tx Store) error {
		t, err := tx.GetTodo(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTodo(ctx, id); err != nil {
			return err
		}
		rest, err := tx.ListTodos(ctx, t.CategoryID)
		if err != nil {
			return err
		}
		return tx.SetTodoOrder(ctx, t.CategoryID, Compact(rest))
	})
}

// Suggestions returns the distinct todo names a user has used, for
// autocompletion.
func (s *Service) Suggestions(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidArgs
	}
	return s.db.Suggestions(ctx, userID)
}
