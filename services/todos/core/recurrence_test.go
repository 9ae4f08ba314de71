package core

import (
	"errors"
	"testing"
	"time"
)

func TestAdvance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from time.Time
		s    Schedule
		want time.Time
	}{
		{"daily", at(2024, 1, 3, 10), Schedule{Daily, 1}, at(2024, 1, 4, 10)},
		{"every 3 days across month", at(2024, 1, 30, 10), Schedule{Daily, 3}, at(2024, 2, 2, 10)},
		{"weekly", at(2024, 1, 3, 10), Schedule{Weekly, 1}, at(2024, 1, 10, 10)},
		{"biweekly", at(2024, 12, 25, 7), Schedule{Weekly, 2}, at(2025, 1, 8, 7)},
		{"monthly clamps non-leap", at(2023, 1, 31, 9), Schedule{Monthly, 1}, at(2023, 2, 28, 9)},
		{"monthly clamps leap", at(2024, 1, 31, 9), Schedule{Monthly, 1}, at(2024, 2, 29, 9)},
		{"monthly keeps day", at(2024, 3, 15, 9), Schedule{Monthly, 1}, at(2024, 4, 15, 9)},
		{"monthly to 30-day month", at(2024, 3, 31, 9), Schedule{Monthly, 1}, at(2024, 4, 30, 9)},
		{"quarterly over year end", at(2024, 11, 30, 9), Schedule{Monthly, 3}, at(2025, 2, 28, 9)},
		{"monthly 14 months", at(2024, 1, 31, 9), Schedule{Monthly, 14}, at(2025, 3, 31, 9)},
		{"yearly", at(2024, 6, 1, 0), Schedule{Yearly, 1}, at(2025, 6, 1, 0)},
		{"yearly from leap day", at(2024, 2, 29, 12), Schedule{Yearly, 1}, at(2025, 2, 28, 12)},
		{"four years from leap day", at(2024, 2, 29, 12), Schedule{Yearly, 4}, at(2028, 2, 29, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Advance(tt.from, tt.s)
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Advance(%s, %+v) = %s, want %s", tt.from, tt.s, got, tt.want)
			}
		})
	}
}

func TestAdvance_DailyIsCalendarDayAcrossDST(t *testing.T) {
	t.Parallel()

	loc := mustLoc(t, "Europe/Berlin")
	from := time.Date(2024, time.March, 30, 9, 0, 0, 0, loc)
	got, err := Advance(from, Schedule{Daily, 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Hour() != 9 || got.Day() != 31 {
		t.Fatalf("got %s, want March 31 09:00 local", got)
	}
	if got.Sub(from) != 23*time.Hour {
		t.Fatalf("elapsed %s, want 23h", got.Sub(from))
	}
}

func TestAdvance_InvalidSchedule(t *testing.T) {
	t.Parallel()

	for _, s := range []Schedule{
		{Daily, 0},
		{Weekly, -1},
		{Unit("HOURLY"), 1},
		{Unit("daily"), 1},
		{"", 1},
	} {
		_, err := Advance(at(2024, 1, 1, 0), s)
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("Advance(%+v) err = %v, want ErrInvalidSchedule", s, err)
		}
		var se *InvalidScheduleError
		if !errors.As(err, &se) || se.Unit != s.Unit || se.Count != s.Count {
			t.Fatalf("Advance(%+v) err = %#v", s, err)
		}
	}
}

func TestNextOccurrence_CopiesTask(t *testing.T) {
	t.Parallel()

	done := doneAt(at(2024, 1, 3, 10))
	done.ID = "t1"
	done.CategoryID = "c1"
	done.Name = "Water plants"
	done.Notes = "balcony"
	done.Size = Small
	done.Priority = Urgent
	done.SortOrder = 4
	done.Schedule = &Schedule{Weekly, 1}

	next := nextOccurrence(done, at(2024, 1, 10, 10))
	if next.ID != "" || next.Status != Incomplete || next.CompletedDateTime != nil {
		t.Fatalf("unexpected next: %+v", next)
	}
	if next.Name != done.Name || next.Notes != done.Notes || next.Size != done.Size ||
		next.Priority != done.Priority || next.CategoryID != done.CategoryID {
		t.Fatalf("fields not copied: %+v", next)
	}
	if next.Schedule == done.Schedule || *next.Schedule != *done.Schedule {
		t.Fatalf("schedule should be an equal copy")
	}
}
