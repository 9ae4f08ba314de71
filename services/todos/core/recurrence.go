package core

import "time"

// Validate rejects schedules that cannot produce a next occurrence.
func (s Schedule) Validate() error {
	switch s.Unit {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return &InvalidScheduleError{Unit: s.Unit, Count: s.Count, Reason: "unknown unit"}
	}
	if s.Count <= 0 {
		return &InvalidScheduleError{Unit: s.Unit, Count: s.Count, Reason: "count must be positive"}
	}
	return nil
}

// Advance returns the start date of the occurrence that follows one completed
// at completedAt. Offsets are calendar offsets in completedAt's location, so a
// monthly rule keeps its day of month and clamps it in shorter months.
func Advance(completedAt time.Time, s Schedule) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	switch s.Unit {
	case Daily:
		return completedAt.AddDate(0, 0, s.Count), nil
	case Weekly:
		return completedAt.AddDate(0, 0, 7*s.Count), nil
	case Monthly:
		return addMonths(completedAt, s.Count), nil
	default: // Yearly
		return addMonths(completedAt, 12*s.Count), nil
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)
	return time.Date(ty, month, clampDay(ty, month, d), hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysInMonth(y int, m time.Month) int {
	// day 0 of the next month is the last day of m
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDay(y int, m time.Month, d int) int {
	if last := daysInMonth(y, m); d > last {
		return last
	}
	return d
}

// nextOccurrence builds the INCOMPLETE follow-up of a completed recurring todo.
// ID and SortOrder are assigned by the caller.
func nextOccurrence(done Todo, start time.Time) Todo {
	sched := *done.Schedule
	return Todo{
		CategoryID:   done.CategoryID,
		CategoryName: done.CategoryName,
		UserID:       done.UserID,
		Name:         done.Name,
		Notes:        done.Notes,
		Size:         done.Size,
		Priority:     done.Priority,
		Status:       Incomplete,
		StartDate:    start,
		Schedule:     &sched,
	}
}
