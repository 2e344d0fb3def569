// Package exchange implements the negotiation of a single paste request.
//
// An Exchange moves through the states
//
//	Requested → Offered → Accepted → Delivered
//
// and may end in Cancelled or Failed from any non-terminal state. The
// package only enforces the transitions; the world drives them from events.
package exchange

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.klb.dev/handoff/internal/content"
)

var (
	ErrAlreadyPending   = errors.New("exchange: already pending on channel")
	ErrInvalidSelection = errors.New("exchange: invalid type selection")
	ErrInvalidState     = errors.New("exchange: invalid state for operation")
	ErrExchangeFailed   = errors.New("exchange: failed")
	ErrUnsupported      = errors.New("exchange: unsupported")

	// ErrTimeout reports that the owner did not answer in time. It matches
	// ErrExchangeFailed with errors.Is.
	ErrTimeout = fmt.Errorf("%w: timed out", ErrExchangeFailed)
)

// State is the position of an exchange in the negotiation.
type State int

const (
	// Idle is reported for a channel slot with no exchange.
	Idle State = iota
	Requested
	Offered
	Accepted
	Delivered
	Cancelled
	Failed
)

var stateNames = [...]string{
	Idle:      "idle",
	Requested: "requested",
	Offered:   "offered",
	Accepted:  "accepted",
	Delivered: "delivered",
	Cancelled: "cancelled",
	Failed:    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Delivered || s == Cancelled || s == Failed
}

// Exchange is one in-flight request to paste. It is not safe for concurrent
// use; the world only touches it from its event loop.
type Exchange struct {
	id          uint64
	owner       string
	channel     content.Channel
	state       State
	types       []string
	selected    int
	action      Action
	region      Region
	received    content.Entry
	err         error
	requestedAt time.Time
}

// New returns an exchange in the Requested state.
func New(id uint64, owner string, ch content.Channel) *Exchange {
	return &Exchange{
		id:          id,
		owner:       owner,
		channel:     ch,
		state:       Requested,
		selected:    -1,
		requestedAt: time.Now(),
	}
}

func (e *Exchange) ID() uint64               { return e.id }
func (e *Exchange) Owner() string            { return e.owner }
func (e *Exchange) Channel() content.Channel { return e.channel }
func (e *Exchange) State() State             { return e.state }
func (e *Exchange) Action() Action           { return e.action }
func (e *Exchange) Region() Region           { return e.region }
func (e *Exchange) RequestedAt() time.Time   { return e.requestedAt }

// Err returns the cause of a Failed exchange, or nil.
func (e *Exchange) Err() error { return e.err }

// Types returns the advertised type labels in the advertiser's order.
func (e *Exchange) Types() []string { return slices.Clone(e.types) }

// Selected returns the accepted type index.
func (e *Exchange) Selected() (int, bool) {
	return e.selected, e.selected >= 0
}

// SelectedType returns the accepted type label, or "" before acceptance.
func (e *Exchange) SelectedType() string {
	if e.selected < 0 {
		return ""
	}
	return e.types[e.selected]
}

// Received returns a copy of the delivered entry.
func (e *Exchange) Received() (content.Entry, bool) {
	if e.state != Delivered {
		return content.Entry{}, false
	}
	return e.received.Clone(), true
}

// Offer records the advertised types.
func (e *Exchange) Offer(types []string) error {
	if e.state != Requested {
		return fmt.Errorf("%w: offer in %s", ErrInvalidState, e.state)
	}
	if len(types) == 0 {
		return fmt.Errorf("%w: empty offer", ErrExchangeFailed)
	}
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		if _, dup := seen[t]; dup || t == "" {
			return fmt.Errorf("%w: malformed offer %q", ErrExchangeFailed, types)
		}
		seen[t] = struct{}{}
	}
	e.types = slices.Clone(types)
	e.state = Offered
	return nil
}

// Accept selects one advertised type. An out-of-range index leaves the
// exchange Offered so the caller can retry.
func (e *Exchange) Accept(index int, action Action, region Region) error {
	if e.state != Offered {
		return fmt.Errorf("%w: accept in %s", ErrInvalidState, e.state)
	}
	if index < 0 || index >= len(e.types) {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidSelection, index, len(e.types))
	}
	if !action.Valid() {
		return fmt.Errorf("%w: action %s", ErrUnsupported, action)
	}
	e.selected = index
	e.action = action
	e.region = region
	e.state = Accepted
	return nil
}

// Deliver completes the exchange with the payload of the selected type. The
// data is copied.
func (e *Exchange) Deliver(typ string, data []byte) error {
	if e.state != Accepted {
		return fmt.Errorf("%w: deliver in %s", ErrInvalidState, e.state)
	}
	if want := e.SelectedType(); typ != want {
		err := fmt.Errorf("delivered %q, selected %q", typ, want)
		e.Fail(err)
		return e.err
	}
	e.received = content.Entry{Type: typ, Data: data}.Clone()
	e.state = Delivered
	return nil
}

// Fail moves a non-terminal exchange to Failed. The recorded error wraps
// both ErrExchangeFailed and cause.
func (e *Exchange) Fail(cause error) {
	if e.state.Terminal() {
		return
	}
	switch {
	case cause == nil:
		e.err = ErrExchangeFailed
	case errors.Is(cause, ErrExchangeFailed):
		e.err = cause
	default:
		e.err = fmt.Errorf("%w: %w", ErrExchangeFailed, cause)
	}
	e.state = Failed
}

// Cancel moves a non-terminal exchange to Cancelled.
func (e *Exchange) Cancel() {
	if e.state.Terminal() {
		return
	}
	e.state = Cancelled
}

func (e *Exchange) String() string {
	return fmt.Sprintf("exchange#%d(%s %s %s)", e.id, e.owner, e.channel, e.state)
}
