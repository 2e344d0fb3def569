package world

import (
	"fmt"
	"strings"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
)

// Event is delivered to a view's Handler. The concrete types below are the
// only implementations; handlers switch on them.
type Event interface {
	isEvent()
}

// ExposeEvent is sent once after View.Show.
type ExposeEvent struct{}

// TimerEvent is sent each time a timer started with View.StartTimer fires.
type TimerEvent struct {
	ID TimerID
}

// OfferEvent carries the owner's advertisement for a pending paste. The
// handler must call View.AcceptOffer before returning, otherwise the offer
// is declined.
type OfferEvent struct {
	Exchange *exchange.Exchange
	Channel  content.Channel
	Types    []string
}

// DataEvent reports a delivered payload. The entry is already in the view's
// store when the event is dispatched.
type DataEvent struct {
	Exchange *exchange.Exchange
	Channel  content.Channel
	Type     string
	Data     []byte
}

// Entry returns the delivered payload as a content entry.
func (e DataEvent) Entry() content.Entry {
	return content.Entry{Type: e.Type, Data: e.Data}
}

// FailedEvent reports that a paste ended without data. Err matches
// exchange.ErrExchangeFailed.
type FailedEvent struct {
	Exchange *exchange.Exchange
	Channel  content.Channel
	Err      error
}

// CloseEvent is sent after View.RequestClose. The view stays open until the
// handler calls View.Close.
type CloseEvent struct{}

func (ExposeEvent) isEvent() {}
func (TimerEvent) isEvent()  {}
func (OfferEvent) isEvent()  {}
func (DataEvent) isEvent()   {}
func (FailedEvent) isEvent() {}
func (CloseEvent) isEvent()  {}

// Describe renders ev on one line for verbose event tracing.
func Describe(ev Event) string {
	switch e := ev.(type) {
	case ExposeEvent:
		return "Expose"
	case TimerEvent:
		return fmt.Sprintf("Timer        id=%d", e.ID)
	case OfferEvent:
		return fmt.Sprintf("Data offer   channel=%s types=[%s]", e.Channel, strings.Join(e.Types, " "))
	case DataEvent:
		return fmt.Sprintf("Data         channel=%s type=%s len=%d", e.Channel, e.Type, len(e.Data))
	case FailedEvent:
		return fmt.Sprintf("Data failed  channel=%s err=%v", e.Channel, e.Err)
	case CloseEvent:
		return "Close"
	default:
		return fmt.Sprintf("Unknown %T", ev)
	}
}
