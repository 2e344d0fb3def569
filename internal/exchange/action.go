package exchange

import (
	"fmt"
	"slices"
)

// Action is what the requester intends to do with accepted content.
type Action int

const (
	ActionCopy Action = iota
	ActionMove
	ActionLink
	ActionPrivate
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "copy"
	case ActionMove:
		return "move"
	case ActionLink:
		return "link"
	case ActionPrivate:
		return "private"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool { return a >= ActionCopy && a <= ActionPrivate }

// ParseAction converts a name produced by String back to an Action.
func ParseAction(s string) (Action, error) {
	for a := ActionCopy; a <= ActionPrivate; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: action %q", ErrUnsupported, s)
}

// Actions is the set of actions a channel permits.
type Actions []Action

// Allows reports whether a is in the set.
func (as Actions) Allows(a Action) bool { return slices.Contains(as, a) }

// Region is the target area of an accepted offer, in view coordinates.
type Region struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }
