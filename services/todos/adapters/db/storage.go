package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"todo-board/services/todos/core"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type DB struct {
	log  *slog.Logger
	conn *sqlx.DB
	// q is conn, or the open transaction inside InTx
	q    sqlx.ExtContext
	inTx bool
}

func New(log *slog.Logger, driverName, address string) (*DB, error) {
	switch driverName {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driverName)
	}

	conn, err := sqlx.Connect(driverName, address)
	if err != nil {
		log.Error("connection problem", "driver", driverName, "address", address, "error", err)
		return nil, err
	}

	if driverName == DriverSQLite {
		// одно соединение: иначе каждое :memory: соединение видит свою базу
		conn.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA foreign_keys=ON;", "PRAGMA busy_timeout=5000;"} {
			if _, err := conn.Exec(p); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("sqlite pragma: %w", err)
			}
		}
	}

	return &DB{log: log, conn: conn, q: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// InTx runs fn against a transaction-bound copy of db. Nested calls reuse the
// outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}

	if err := fn(&DB{log: db.log, conn: db.conn, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.log.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit tx", err)
	}
	return nil
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.q.ExecContext(ctx, db.q.Rebind(query), args...)
}

func (db *DB) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, db.q, dest, db.q.Rebind(query), args...)
}

func (db *DB) sel(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, db.q, dest, db.q.Rebind(query), args...)
}

func ms(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMs(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Categories

type categoryRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Color       string `db:"color"`
	MaxPerDay   int    `db:"max_per_day"`
	SortOrder   int    `db:"sort_order"`
	CreatedMs   int64  `db:"created_ms"`
}

func (r categoryRow) toCore() core.Category {
	return core.Category{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		MaxPerDay:   r.MaxPerDay,
		SortOrder:   r.SortOrder,
		Created:     fromMs(r.CreatedMs),
	}
}

const categoryColumns = `id, user_id, name, description, color, max_per_day, sort_order, created_ms`

func (db *DB) CreateCategory(ctx context.Context, c core.Category) error {
	const q = `
		INSERT INTO categories(id, user_id, name, description, color, max_per_day, sort_order, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.exec(ctx, q, c.ID, c.UserID, c.Name, c.Description, c.Color, c.MaxPerDay, c.SortOrder, ms(c.Created))
	if err != nil {
		if isCheckViolation(err) {
			return core.ErrInvalidArgs
		}
		return wrap("insert category", err)
	}
	return nil
}

func (db *DB) GetCategory(ctx context.Context, id string) (core.Category, error) {
	const q = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

	var r categoryRow
	if err := db.get(ctx, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, core.CategoryNotFound(id)
		}
		return core.Category{}, wrap("get category", err)
	}
	return r.toCore(), nil
}

func (db *DB) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	const q = `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? ORDER BY sort_order ASC, id ASC`

	var rows []categoryRow
	if err := db.sel(ctx, &rows, q, userID); err != nil {
		return nil, wrap("list categories", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

// DeleteCategory removes the category together with its todos and their
// schedules.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	if _, err := db.exec(ctx,
		`DELETE FROM schedules WHERE todo_id IN (SELECT id FROM todos WHERE category_id = ?)`, id); err != nil {
		return wrap("delete category schedules", err)
	}
	if _, err := db.exec(ctx, `DELETE FROM todos WHERE category_id = ?`, id); err != nil {
		return wrap("delete category todos", err)
	}

	res, err := db.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return wrap("delete category", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.CategoryNotFound(id)
	}
	return nil
}

func (db *DB) SetCategoryOrder(ctx context.Context, userID string, ids []string) error {
	const q = `UPDATE categories SET sort_order = ? WHERE id = ? AND user_id = ?`
	for i, id := range ids {
		if _, err := db.exec(ctx, q, i, id, userID); err != nil {
			return wrap("set category order", err)
		}
	}
	return nil
}

// Todos

type todoRow struct {
	ID            string         `db:"id"`
	CategoryID    string         `db:"category_id"`
	CategoryName  string         `db:"category_name"`
	UserID        string         `db:"user_id"`
	Name          string         `db:"name"`
	Notes         string         `db:"notes"`
	Size          string         `db:"size"`
	Priority      string         `db:"priority"`
	Status        string         `db:"status"`
	StartDateMs   int64          `db:"start_date_ms"`
	CompletedMs   sql.NullInt64  `db:"completed_ms"`
	SortOrder     int            `db:"sort_order"`
	CreatedMs     int64          `db:"created_ms"`
	ScheduleUnit  sql.NullString `db:"schedule_unit"`
	ScheduleCount sql.NullInt64  `db:"schedule_count"`
}

// toCore parses every enum column; an unknown stored value is an error, not
// a default.
func (r todoRow) toCore() (core.Todo, error) {
	size, err := core.ParseSize(r.Size)
	if err != nil {
		return core.Todo{}, fmt.Errorf("todo %s: %w", r.ID, err)
	}
	priority, err := core.ParsePriority(r.Priority)
	if err != nil {
		return core.Todo{}, fmt.Errorf("todo %s: %w", r.ID, err)
	}
	status, err := core.ParseStatus(r.Status)
	if err != nil {
		return core.Todo{}, fmt.Errorf("todo %s: %w", r.ID, err)
	}

	t := core.Todo{
		ID:           r.ID,
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName,
		UserID:       r.UserID,
		Name:         r.Name,
		Notes:        r.Notes,
		Size:         size,
		Priority:     priority,
		Status:       status,
		StartDate:    fromMs(r.StartDateMs),
		SortOrder:    r.SortOrder,
		Created:      fromMs(r.CreatedMs),
	}
	if r.CompletedMs.Valid {
		done := fromMs(r.CompletedMs.Int64)
		t.CompletedDateTime = &done
	}
	if r.ScheduleUnit.Valid {
		unit, err := core.ParseUnit(r.ScheduleUnit.String)
		if err != nil {
			var se *core.InvalidScheduleError
			if errors.As(err, &se) {
				se.Count = int(r.ScheduleCount.Int64)
			}
			return core.Todo{}, fmt.Errorf("todo %s: %w", r.ID, err)
		}
		t.Schedule = &core.Schedule{Unit: unit, Count: int(r.ScheduleCount.Int64)}
	}
	return t, nil
}

func toCoreTodos(rows []todoRow) ([]core.Todo, error) {
	out := make([]core.Todo, 0, len(rows))
	for _, r := range rows {
		t, err := r.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

const selectTodos = `
	SELECT t.id, t.category_id, c.name AS category_name, c.user_id,
	       t.name, t.notes, t.size, t.priority, t.status,
	       t.start_date_ms, t.completed_ms, t.sort_order, t.created_ms,
	       s.unit AS schedule_unit, s.interval_count AS schedule_count
	FROM todos t
	JOIN categories c ON c.id = t.category_id
	LEFT JOIN schedules s ON s.todo_id = t.id
`

func (db *DB) CreateTodo(ctx context.Context, t core.Todo) error {
	const q = `
		INSERT INTO todos(id, category_id, name, notes, size, priority, status,
		                  start_date_ms, completed_ms, sort_order, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var completed sql.NullInt64
	if t.CompletedDateTime != nil {
		completed = sql.NullInt64{Int64: ms(*t.CompletedDateTime), Valid: true}
	}

	_, err := db.exec(ctx, q,
		t.ID, t.CategoryID, t.Name, t.Notes,
		string(t.Size), string(t.Priority), string(t.Status),
		ms(t.StartDate), completed, t.SortOrder, ms(t.Created),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.CategoryNotFound(t.CategoryID)
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", core.ErrInvalidArgs, err)
		}
		return wrap("insert todo", err)
	}

	if t.Schedule == nil {
		return nil
	}
	const qs = `INSERT INTO schedules(todo_id, unit, interval_count) VALUES (?, ?, ?)`
	if _, err := db.exec(ctx, qs, t.ID, string(t.Schedule.Unit), t.Schedule.Count); err != nil {
		return wrap("insert schedule", err)
	}
	return nil
}

func (db *DB) GetTodo(ctx context.Context, id string) (core.Todo, error) {
	var r todoRow
	if err := db.get(ctx, &r, selectTodos+` WHERE t.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Todo{}, core.TodoNotFound(id)
		}
		return core.Todo{}, wrap("get todo", err)
	}
	return r.toCore()
}

func (db *DB) ListTodos(ctx context.Context, categoryID string) ([]core.Todo, error) {
	var rows []todoRow
	q := selectTodos + ` WHERE t.category_id = ? ORDER BY t.sort_order ASC, t.id ASC`
	if err := db.sel(ctx, &rows, q, categoryID); err != nil {
		return nil, wrap("list todos", err)
	}
	return toCoreTodos(rows)
}

// ListCandidates narrows the user's todos to those the visibility predicate
// can accept for w. The predicate is still applied by the engine.
func (db *DB) ListCandidates(ctx context.Context, userID string, w core.Window) ([]core.Todo, error) {
	q := selectTodos + `
		WHERE c.user_id = ?
		  AND ((t.status = ? AND t.start_date_ms <= ?)
		    OR (t.status = ? AND t.completed_ms >= ? AND t.completed_ms <= ?))
	`

	var rows []todoRow
	err := db.sel(ctx, &rows, q,
		userID,
		string(core.Incomplete), ms(w.End),
		string(core.Done), ms(w.Start), ms(w.End),
	)
	if err != nil {
		return nil, wrap("list candidates", err)
	}
	return toCoreTodos(rows)
}

// MarkDone flips an INCOMPLETE todo to DONE. It reports false when the todo
// was already DONE.
func (db *DB) MarkDone(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `UPDATE todos SET status = ?, completed_ms = ? WHERE id = ? AND status = ?`
	return db.flip(ctx, "mark done", q, id, string(core.Done), ms(at), id, string(core.Incomplete))
}

func (db *DB) MarkIncomplete(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE todos SET status = ?, completed_ms = NULL WHERE id = ? AND status = ?`
	return db.flip(ctx, "mark incomplete", q, id, string(core.Incomplete), id, string(core.Done))
}

func (db *DB) flip(ctx context.Context, op, q, id string, args ...any) (bool, error) {
	res, err := db.exec(ctx, q, args...)
	if err != nil {
		return false, wrap(op, err)
	}
	if aff, _ := res.RowsAffected(); aff > 0 {
		return true, nil
	}

	var exists int
	if err := db.get(ctx, &exists, `SELECT COUNT(*) FROM todos WHERE id = ?`, id); err != nil {
		return false, wrap(op, err)
	}
	if exists == 0 {
		return false, core.TodoNotFound(id)
	}
	return false, nil
}

func (db *DB) DeleteTodo(ctx context.Context, id string) error {
	if _, err := db.exec(ctx, `DELETE FROM schedules WHERE todo_id = ?`, id); err != nil {
		return wrap("delete schedule", err)
	}
	res, err := db.exec(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return wrap("delete todo", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.TodoNotFound(id)
	}
	return nil
}

func (db *DB) SetTodoOrder(ctx context.Context, categoryID string, ids []string) error {
	const q = `UPDATE todos SET sort_order = ? WHERE id = ? AND category_id = ?`
	for i, id := range ids {
		if _, err := db.exec(ctx, q, i, id, categoryID); err != nil {
			return wrap("set todo order", err)
		}
	}
	return nil
}

func (db *DB) Suggestions(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT DISTINCT t.name
		FROM todos t
		JOIN categories c ON c.id = t.category_id
		WHERE c.user_id = ?
		ORDER BY t.name ASC
	`
	out := []string{}
	if err := db.sel(ctx, &out, q, userID); err != nil {
		return nil, wrap("suggestions", err)
	}
	return out, nil
}

// errors

// wrap marks failures a caller may retry as TransientStoreError and adds
// the operation name to everything else.
func wrap(op string, err error) error {
	if isTransient(err) {
		return &core.TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01", pgErr.Code == "53300":
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// constraint helpers

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr) &&
		(liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || strings.Contains(liteErr.Error(), "FOREIGN KEY constraint failed"))
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr) &&
		(liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK || strings.Contains(liteErr.Error(), "CHECK constraint failed"))
}
