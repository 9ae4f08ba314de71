package core

import (
	"fmt"
	"strings"
)

type Status string

const (
	Incomplete Status = "INCOMPLETE"
	Done       Status = "DONE"
)

type Size string

const (
	Small  Size = "SMALL"
	Medium Size = "MEDIUM"
	Large  Size = "LARGE"
)

type Priority string

const (
	Normal Priority = "NORMAL"
	Urgent Priority = "URGENT"
)

type Unit string

const (
	Daily   Unit = "DAILY"
	Weekly  Unit = "WEEKLY"
	Monthly Unit = "MONTHLY"
	Yearly  Unit = "YEARLY"
)

type Granularity string

const (
	Day   Granularity = "DAY"
	Week  Granularity = "WEEK"
	Month Granularity = "MONTH"
	Year  Granularity = "YEAR"
)

// Parsers are used wherever a stored or transported string becomes an enum.
// Unknown values are errors, never passed through.

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case Incomplete:
		return Incomplete, nil
	case Done:
		return Done, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgs, s)
	}
}

func ParseSize(s string) (Size, error) {
	switch Size(strings.ToUpper(strings.TrimSpace(s))) {
	case Small:
		return Small, nil
	case Medium:
		return Medium, nil
	case Large:
		return Large, nil
	default:
		return "", fmt.Errorf("%w: unknown size %q", ErrInvalidArgs, s)
	}
}

func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case Normal:
		return Normal, nil
	case Urgent:
		return Urgent, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidArgs, s)
	}
}

// ParseUnit fails with an InvalidScheduleError so a bad stored rule is
// reported the same way as a bad submitted one.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToUpper(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", &InvalidScheduleError{Unit: Unit(s), Reason: "unknown unit"}
	}
}

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToUpper(strings.TrimSpace(s))) {
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	case Year:
		return Year, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidArgs, s)
	}
}

func (g Granularity) valid() bool {
	switch g {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

func (s Size) valid() bool {
	switch s {
	case Small, Medium, Large:
		return true
	}
	return false
}

func (p Priority) valid() bool {
	return p == Normal || p == Urgent
}
