package rest

import "time"

type CreateCategoryIn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
	MaxPerDay   int    `json:"maxPerDay"`
}

type ScheduleIn struct {
	Unit  string `json:"unit"`
	Count int    `json:"count"`
}

type CreateTodoIn struct {
	Name      string      `json:"name"`
	Notes     string      `json:"notes"`
	Size      string      `json:"size,omitempty"`     // SMALL|MEDIUM|LARGE, MEDIUM если пусто
	Priority  string      `json:"priority,omitempty"` // NORMAL|URGENT
	StartDate *time.Time  `json:"startDate,omitempty"`
	Schedule  *ScheduleIn `json:"schedule,omitempty"`
}

// ReorderIn is the full new order of a scope, never a single move.
type ReorderIn struct {
	IDs []string `json:"ids"`
}

type CompleteIn struct {
	// Now defaults to the server clock. Its offset decides the calendar the
	// next occurrence is computed in.
	Now *time.Time `json:"now,omitempty"`
}

type ErrorOut struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// not found
	Kind string `json:"kind,omitempty"`
	ID   string `json:"id,omitempty"`

	// order mismatch
	Scope      string   `json:"scope,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
	Duplicated []string `json:"duplicated,omitempty"`

	// invalid schedule
	Unit  string `json:"unit,omitempty"`
	Count int    `json:"count,omitempty"`
}
