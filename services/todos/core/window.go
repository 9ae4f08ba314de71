package core

import "time"

// Resolve maps the calendar date of ref, read in ref's location, to the
// window of the given granularity that contains it. Weeks start on Monday.
// Unknown granularities resolve to a day.
func Resolve(ref time.Time, g Granularity) Window {
	loc := ref.Location()
	y, m, d := ref.Date()

	var start, end time.Time
	switch g {
	case Week:
		back := (int(ref.Weekday()) + 6) % 7
		start = time.Date(y, m, d-back, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d-back+7, 0, 0, 0, 0, loc)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	default:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return Window{Start: start, End: end}
}

// Contains reports whether t lies in the closed interval [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
