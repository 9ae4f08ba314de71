package db

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed migrations/01_create_categories.up.sql
var createCategoriesUp string

//go:embed migrations/02_create_todos.up.sql
var createTodosUp string

//go:embed migrations/03_create_schedules.up.sql
var createSchedulesUp string

// Migrate применяет миграции для todos-сервиса
func (db *DB) Migrate() error {
	db.log.Debug("running todosDB migrations")

	for _, m := range []struct {
		name string
		sql  string
	}{
		{"categories", createCategoriesUp},
		{"todos", createTodosUp},
		{"schedules", createSchedulesUp},
	} {
		// по одному выражению: sqlite и pgx по-разному исполняют пачки
		for _, stmt := range statements(m.sql) {
			if _, err := db.conn.Exec(stmt); err != nil {
				return fmt.Errorf("apply %s migration: %w", m.name, err)
			}
		}
	}

	db.log.Debug("todosDB migrations finished")
	return nil
}

func statements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
