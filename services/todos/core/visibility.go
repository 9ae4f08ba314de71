package core

import "sort"

// IsVisible decides whether t belongs in the view for w. Pending todos use a
// one-sided bound so the whole backlog stays on screen; finished ones are a
// ledger of the period.
func IsVisible(t Todo, w Window) bool {
	switch t.Status {
	case Incomplete:
		return !t.StartDate.After(w.End)
	case Done:
		if t.CompletedDateTime == nil {
			return false
		}
		return w.Contains(*t.CompletedDateTime)
	default:
		return false
	}
}

// FilterVisible keeps the visible todos and returns them in display order.
func FilterVisible(todos []Todo, w Window) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if IsVisible(t, w) {
			out = append(out, t)
		}
	}
	SortVisible(out)
	return out
}

// SortVisible orders todos for display: incomplete first, urgent first, then
// sort order, id, category name and name.
func SortVisible(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return compareVisible(todos[i], todos[j]) < 0
	})
}

func compareVisible(a, b Todo) int {
	if ai, bi := a.Status == Incomplete, b.Status == Incomplete; ai != bi {
		if ai {
			return -1
		}
		return 1
	}
	if au, bu := a.Priority == Urgent, b.Priority == Urgent; au != bu {
		if au {
			return -1
		}
		return 1
	}
	if a.SortOrder != b.SortOrder {
		if a.SortOrder < b.SortOrder {
			return -1
		}
		return 1
	}
	for _, p := range [][2]string{
		{a.ID, b.ID},
		{a.CategoryName, b.CategoryName},
		{a.Name, b.Name},
	} {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}
