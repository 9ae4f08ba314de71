package core

import (
	"errors"
	"fmt"
	"strings"
)

// Mirrors of the todos service errors. The client maps response codes back
// onto them so callers can use errors.Is the same way on both sides.
var (
	ErrInvalidArgs     = errors.New("invalid arguments")
	ErrNotFound        = errors.New("not found")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrOrderMismatch   = errors.New("order mismatch")
	ErrUnavailable     = errors.New("dependency unavailable")
)

var (
	ErrQueryCancelled  = errors.New("query cancelled")
	ErrMutationSettled = errors.New("mutation already settled")
	ErrCannotMove      = fmt.Errorf("%w: item cannot move further", ErrInvalidArgs)
)

type OrderMismatchError struct {
	Scope      string
	Missing    []string
	Unexpected []string
	Duplicated []string
}

func (e *OrderMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ","))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, "duplicated "+strings.Join(e.Duplicated, ","))
	}
	return fmt.Sprintf("order mismatch in %s: %s", e.Scope, strings.Join(parts, "; "))
}

func (e *OrderMismatchError) Is(target error) bool { return target == ErrOrderMismatch }
