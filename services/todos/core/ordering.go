package core

import "sort"

type ScopeKind string

const (
	CategoryTodos ScopeKind = "category"
	UserBoard     ScopeKind = "board"
)

// Scope identifies a set of siblings sharing one dense sort order: the todos
// of a category, or the categories of a user.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID
}

// CheckPermutation verifies that ordered holds every id of current exactly once
// and nothing else.
func CheckPermutation(scope Scope, current, ordered []string) error {
	live := make(map[string]bool, len(current))
	for _, id := range current {
		live[id] = true
	}

	seen := make(map[string]int, len(ordered))
	var unexpected, duplicated []string
	for _, id := range ordered {
		seen[id]++
		switch {
		case !live[id]:
			if seen[id] == 1 {
				unexpected = append(unexpected, id)
			}
		case seen[id] == 2:
			duplicated = append(duplicated, id)
		}
	}

	var missing []string
	for _, id := range current {
		if seen[id] == 0 {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 && len(duplicated) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	sort.Strings(duplicated)
	return &OrderMismatchError{
		Scope:      scope,
		Missing:    missing,
		Unexpected: unexpected,
		Duplicated: duplicated,
	}
}

type positioned interface {
	key() string
	position() int
}

func (t Todo) key() string       { return t.ID }
func (t Todo) position() int     { return t.SortOrder }
func (c Category) key() string   { return c.ID }
func (c Category) position() int { return c.SortOrder }

// Compact returns the ids of items sorted by their current position, with ties
// broken by id. Assigning index i to the i-th id gives the dense order 0..n-1,
// which is how gaps left by deletes are closed.
func Compact[T positioned](items []T) []string {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].position() != sorted[j].position() {
			return sorted[i].position() < sorted[j].position()
		}
		return sorted[i].key() < sorted[j].key()
	})
	return ids(sorted)
}

// IsDense reports whether positions are exactly 0..n-1.
func IsDense[T positioned](items []T) bool {
	seen := make([]bool, len(items))
	for _, it := range items {
		p := it.position()
		if p < 0 || p >= len(items) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

func ids[T positioned](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.key()
	}
	return out
}
