package core

import (
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	Incomplete Status = "INCOMPLETE"
	Done       Status = "DONE"
)

type Priority string

const (
	Normal Priority = "NORMAL"
	Urgent Priority = "URGENT"
)

type Granularity string

const (
	Day   Granularity = "DAY"
	Week  Granularity = "WEEK"
	Month Granularity = "MONTH"
	Year  Granularity = "YEAR"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Day, Week, Month, Year:
		return g, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidArgs, s)
	}
}

type Schedule struct {
	Unit  string `json:"unit"`
	Count int    `json:"count"`
}

type Todo struct {
	ID                string     `json:"id"`
	CategoryID        string     `json:"categoryId"`
	CategoryName      string     `json:"categoryName"`
	UserID            string     `json:"userId"`
	Name              string     `json:"name"`
	Notes             string     `json:"notes"`
	Size              string     `json:"size"`
	Priority          Priority   `json:"priority"`
	Status            Status     `json:"status"`
	StartDate         time.Time  `json:"startDate"`
	CompletedDateTime *time.Time `json:"completedDateTime,omitempty"`
	SortOrder         int        `json:"sortOrder"`
	Schedule          *Schedule  `json:"schedule,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
	MaxPerDay   int    `json:"maxPerDay"`
	SortOrder   int    `json:"sortOrder"`
}

type CompleteResult struct {
	Todo Todo  `json:"todo"`
	Next *Todo `json:"next,omitempty"`
}

// View identifies one board screen: a user's todos around Date, a calendar
// day in TZ.
type View struct {
	UserID      string
	Date        string // YYYY-MM-DD
	Granularity Granularity
	TZ          string
}

func (v View) key() string {
	return fmt.Sprintf("visible|%s|%s|%s|%s", v.UserID, v.Granularity, v.Date, v.TZ)
}

func (v View) doneKey() string {
	return fmt.Sprintf("done|%s|%s|%s|%s", v.UserID, v.Granularity, v.Date, v.TZ)
}

// location falls back to UTC for an empty or unknown zone, as the server does
// for an absent tz.
func (v View) location() *time.Location {
	if v.TZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func categoryKey(categoryID string) string { return "category|" + categoryID }

func categoriesKey(userID string) string { return "categories|" + userID }

// sortBoard orders a speculative list the way the service orders a board:
// incomplete first, urgent first, then by position.
func sortBoard(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if (a.Status == Incomplete) != (b.Status == Incomplete) {
			return a.Status == Incomplete
		}
		if (a.Priority == Urgent) != (b.Priority == Urgent) {
			return a.Priority == Urgent
		}
		return a.SortOrder < b.SortOrder
	})
}
