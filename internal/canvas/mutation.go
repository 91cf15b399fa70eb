package canvas

import (
	"errors"
	"fmt"
)

// Op names a committed-state mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// ErrInvalidMutation is returned when a mutation payload doesn't match its op.
var ErrInvalidMutation = errors.New("invalid mutation")

// Mutation is one committed edit to a room's object list.
type Mutation struct {
	Op        Op
	Objects   []Object // add, update
	IDs       []string // remove
	Timestamp int64    // unix millis, set by sender or relay
}

// Validate checks the payload shape for the op.
func (m Mutation) Validate() error {
	switch m.Op {
	case OpAdd, OpUpdate:
		if len(m.Objects) == 0 {
			return fmt.Errorf("%w: %s requires at least one object", ErrInvalidMutation, m.Op)
		}
		for _, obj := range m.Objects {
			if err := obj.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidMutation, err)
			}
		}
	case OpRemove:
		if len(m.IDs) == 0 {
			return fmt.Errorf("%w: remove requires a non-empty id list", ErrInvalidMutation)
		}
		for _, id := range m.IDs {
			if id == "" {
				return fmt.Errorf("%w: remove contains an empty id", ErrInvalidMutation)
			}
		}
	case OpClear:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMutation, m.Op)
	}
	return nil
}

// Result describes what an applied mutation changed.
type Result struct {
	Added    []Object
	Replaced []Object
	Removed  []Object
}

// Changed reports whether the list was modified.
func (r Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Replaced) > 0 || len(r.Removed) > 0
}

// Apply folds a mutation into the list. The mutation must be valid.
func (l *List) Apply(m Mutation) Result {
	var res Result
	switch m.Op {
	case OpAdd:
		for _, obj := range m.Objects {
			if l.Add(obj) {
				res.Added = append(res.Added, obj)
			}
		}
	case OpUpdate:
		for _, obj := range m.Objects {
			if l.Update(obj) {
				res.Replaced = append(res.Replaced, obj)
			} else {
				res.Added = append(res.Added, obj)
			}
		}
	case OpRemove:
		res.Removed = l.Remove(m.IDs...)
	case OpClear:
		res.Removed = l.Clear()
	}
	return res
}
