package core

type MutationState int

const (
	Pending MutationState = iota
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Mutation tracks one optimistic write. It leaves Pending exactly once.
type Mutation[V any] struct {
	Key      string
	state    MutationState
	snapshot Snapshot[V]
	err      error
}

func newMutation[V any](snapshot Snapshot[V]) *Mutation[V] {
	return &Mutation[V]{Key: snapshot.Key, state: Pending, snapshot: snapshot}
}

func (m *Mutation[V]) State() MutationState { return m.state }

// Err is the remote failure that rolled the mutation back.
func (m *Mutation[V]) Err() error { return m.err }

func (m *Mutation[V]) commit() error {
	if m.state != Pending {
		return ErrMutationSettled
	}
	m.state = Committed
	return nil
}

func (m *Mutation[V]) rollback(cause error) error {
	if m.state != Pending {
		return ErrMutationSettled
	}
	m.state = RolledBack
	m.err = cause
	return nil
}
