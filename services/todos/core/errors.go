package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgs     = errors.New("invalid args")
	ErrNotFound        = errors.New("not found")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrOrderMismatch   = errors.New("order mismatch")
	ErrTransientStore  = errors.New("store unavailable")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InvalidScheduleError struct {
	Unit   Unit
	Count  int
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule (unit=%q count=%d): %s", e.Unit, e.Count, e.Reason)
}

func (e *InvalidScheduleError) Is(target error) bool { return target == ErrInvalidSchedule }

// OrderMismatchError is returned when a submitted order is not a permutation
// of the ids currently in the scope.
type OrderMismatchError struct {
	Scope      Scope
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

// TransientStoreError marks a store failure the caller may retry.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

func (e *TransientStoreError) Is(target error) bool { return target == ErrTransientStore }

func TodoNotFound(id string) error {
	return &NotFoundError{Kind: "todo", ID: id}
}

func CategoryNotFound(id string) error {
	return &NotFoundError{Kind: "category", ID: id}
}
