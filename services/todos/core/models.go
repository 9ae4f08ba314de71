package core

import "time"

type Todo struct {
	ID                string     `json:"id"`
	CategoryID        string     `json:"categoryId"`
	CategoryName      string     `json:"categoryName"` // joined, read-only
	UserID            string     `json:"userId"`       // joined, read-only
	Name              string     `json:"name"`
	Notes             string     `json:"notes"`
	Size              Size       `json:"size"`
	Priority          Priority   `json:"priority"`
	Status            Status     `json:"status"`
	StartDate         time.Time  `json:"startDate"`
	CompletedDateTime *time.Time `json:"completedDateTime,omitempty"` // set iff Status == Done
	SortOrder         int        `json:"sortOrder"`
	Schedule          *Schedule  `json:"schedule,omitempty"`
	Created           time.Time  `json:"created"`
}

// IsRecurring reports whether completing the todo spawns a next occurrence.
func (t Todo) IsRecurring() bool {
	return t.Schedule != nil
}

type Schedule struct {
	Unit  Unit `json:"unit"`
	Count int  `json:"count"`
}

type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color,omitempty"`
	MaxPerDay   int       `json:"maxPerDay"`
	SortOrder   int       `json:"sortOrder"`
	Created     time.Time `json:"created"`
}

// Window is a visibility interval. Start is inclusive; End is the first
// instant of the next period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type NewTodo struct {
	CategoryID string
	Name       string
	Notes      string
	Size       Size
	Priority   Priority
	StartDate  time.Time
	Schedule   *Schedule
}

type NewCategory struct {
	UserID      string
	Name        string
	Description string
	Color       string
	MaxPerDay   int
}

type CompleteResult struct {
	Todo Todo  `json:"todo"`
	Next *Todo `json:"next,omitempty"`
}
