package core

import (
	"errors"
	"testing"
)

func TestMutationSettlesOnce(t *testing.T) {
	t.Parallel()

	m := newMutation(Snapshot[int]{Key: "k"})
	if m.State() != Pending {
		t.Fatalf("expected pending, got %s", m.State())
	}
	if err := m.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if m.State() != Committed {
		t.Fatalf("expected committed, got %s", m.State())
	}
	if err := m.rollback(errors.New("late")); !errors.Is(err, ErrMutationSettled) {
		t.Fatalf("expected ErrMutationSettled, got %v", err)
	}
	if err := m.commit(); !errors.Is(err, ErrMutationSettled) {
		t.Fatalf("expected ErrMutationSettled, got %v", err)
	}
	if m.State() != Committed || m.Err() != nil {
		t.Fatalf("settled mutation changed: %s %v", m.State(), m.Err())
	}
}

func TestMutationRollbackKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("remote failed")
	m := newMutation(Snapshot[int]{Key: "k"})
	if err := m.rollback(cause); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if m.State() != RolledBack || !errors.Is(m.Err(), cause) {
		t.Fatalf("unexpected state %s err %v", m.State(), m.Err())
	}
	if m.State().String() != "rolled back" {
		t.Fatalf("unexpected name %q", m.State().String())
	}
}
