package world

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
)

// pending is the exchange occupying one (view, channel) slot.
type pending struct {
	ex       *exchange.Exchange
	deadline time.Time
	owner    hub.Source // advertiser; nil when the channel had no owner
}

// RequestPaste starts a paste on ch. It returns at once; the owner's offer
// arrives later as an OfferEvent, or the exchange ends with a FailedEvent.
func (c *core) RequestPaste(ch content.Channel) (*exchange.Exchange, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if _, ok := c.w.cfg.Channels[ch]; !ok {
		return nil, fmt.Errorf("%w: channel %s", exchange.ErrUnsupported, ch)
	}
	if p, busy := c.pending[ch]; busy {
		return nil, fmt.Errorf("%w: %s", exchange.ErrAlreadyPending, p.ex)
	}

	w := c.w
	w.nextExchange++
	ex := exchange.New(w.nextExchange, c.id, ch)
	owner, ok := w.hub.Owner(ch)
	c.pending[ch] = &pending{ex: ex, deadline: c.deadline(), owner: owner}
	slog.Debug("paste requested", "view", c.id, "channel", ch, "exchange", ex.ID())

	if !ok {
		w.enqueue(func() { c.fail(ex, fmt.Errorf("%w: %s", hub.ErrNoOwner, ch)) })
		return ex, nil
	}
	w.ask(owner, func(ctx context.Context) job {
		types, err := owner.Offer(ctx, ch)
		return func() { c.offerArrived(ex, owner.ID(), types, err) }
	})
	return ex, nil
}

// AcceptOffer selects one advertised type of ex. It is only valid while the
// OfferEvent for ex is being handled. An out-of-range index or an action the
// channel does not permit leaves the offer open for another attempt.
func (c *core) AcceptOffer(ex *exchange.Exchange, index int, action exchange.Action, region exchange.Region) error {
	if c.closed {
		return ErrClosed
	}
	if ex == nil {
		return fmt.Errorf("%w: no exchange", exchange.ErrInvalidState)
	}
	if !c.live(ex) {
		return fmt.Errorf("%w: %s is not pending on %s", exchange.ErrInvalidState, ex, c.id)
	}
	ch := ex.Channel()
	if !c.w.cfg.Channels[ch].Allows(action) {
		return fmt.Errorf("%w: action %s on channel %s", exchange.ErrUnsupported, action, ch)
	}
	if err := ex.Accept(index, action, region); err != nil {
		return err
	}
	p := c.pending[ch]
	p.deadline = c.deadline()

	typ := ex.SelectedType()
	slog.Debug("offer accepted",
		"view", c.id,
		"channel", ch,
		"exchange", ex.ID(),
		"type", typ,
		"action", action,
	)

	// The payload must come from the source whose types were accepted.
	owner := p.owner
	switch cur, ok := c.w.hub.Owner(ch); {
	case !ok:
		c.w.enqueue(func() { c.fail(ex, fmt.Errorf("%w: %s", hub.ErrNoOwner, ch)) })
		return nil
	case owner == nil || cur.ID() != owner.ID():
		c.w.enqueue(func() {
			c.fail(ex, fmt.Errorf("%w: owner of %s changed to %s", exchange.ErrExchangeFailed, ch, cur.ID()))
		})
		return nil
	}
	c.w.ask(owner, func(ctx context.Context) job {
		data, err := owner.Fetch(ctx, ch, typ)
		return func() { c.dataArrived(ex, typ, data, err) }
	})
	return nil
}

// ExchangeState reports the state of the slot for ch: Idle when nothing is
// pending.
func (c *core) ExchangeState(ch content.Channel) exchange.State {
	if p, ok := c.pending[ch]; ok {
		return p.ex.State()
	}
	return exchange.Idle
}

// Pending returns the exchange occupying the slot for ch.
func (c *core) Pending(ch content.Channel) (*exchange.Exchange, bool) {
	p, ok := c.pending[ch]
	if !ok {
		return nil, false
	}
	return p.ex, true
}

func (c *core) offerArrived(ex *exchange.Exchange, from string, types []string, err error) {
	if !c.live(ex) || ex.State() != exchange.Requested {
		return
	}
	if err != nil {
		c.fail(ex, err)
		return
	}
	if err := ex.Offer(types); err != nil {
		c.fail(ex, err)
		return
	}
	slog.Debug("offer received",
		"view", c.id,
		"channel", ex.Channel(),
		"exchange", ex.ID(),
		"from", from,
		"types", types,
	)

	c.dispatch(OfferEvent{Exchange: ex, Channel: ex.Channel(), Types: ex.Types()})

	// The offer event is the only chance to accept.
	if c.live(ex) && ex.State() == exchange.Offered {
		ex.Cancel()
		c.release(ex)
		slog.Debug("offer declined", "view", c.id, "channel", ex.Channel(), "exchange", ex.ID())
	}
}

func (c *core) dataArrived(ex *exchange.Exchange, typ string, data []byte, err error) {
	if !c.live(ex) || ex.State() != exchange.Accepted {
		return
	}
	if err != nil {
		c.fail(ex, err)
		return
	}
	if err := ex.Deliver(typ, data); err != nil {
		c.failed(ex)
		return
	}

	entry, _ := ex.Received()
	ch := ex.Channel()
	if err := c.store.Publish(ch, []content.Entry{entry}); err != nil {
		c.fail(ex, err)
		return
	}
	c.release(ex)
	slog.Info("exchange delivered",
		"view", c.id,
		"channel", ch,
		"exchange", ex.ID(),
		"type", entry.Type,
		"len", entry.Len(),
	)

	c.dispatch(DataEvent{Exchange: ex, Channel: ch, Type: entry.Type, Data: entry.Data})
}

func (c *core) fail(ex *exchange.Exchange, cause error) {
	if !c.live(ex) {
		return
	}
	ex.Fail(cause)
	c.failed(ex)
}

// failed releases an exchange that has reached Failed and reports it.
func (c *core) failed(ex *exchange.Exchange) {
	c.release(ex)
	slog.Info("exchange failed",
		"view", c.id,
		"channel", ex.Channel(),
		"exchange", ex.ID(),
		"err", ex.Err(),
	)
	c.dispatch(FailedEvent{Exchange: ex, Channel: ex.Channel(), Err: ex.Err()})
}

func (c *core) expire(now time.Time) {
	var due []*exchange.Exchange
	for _, p := range c.pending {
		if !p.deadline.IsZero() && !p.deadline.After(now) {
			due = append(due, p.ex)
		}
	}
	slices.SortFunc(due, func(a, b *exchange.Exchange) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	for _, ex := range due {
		c.fail(ex, exchange.ErrTimeout)
	}
}

// live reports whether ex still occupies its slot on an open view.
func (c *core) live(ex *exchange.Exchange) bool {
	if c.closed {
		return false
	}
	p, ok := c.pending[ex.Channel()]
	return ok && p.ex == ex
}

func (c *core) release(ex *exchange.Exchange) {
	if p, ok := c.pending[ex.Channel()]; ok && p.ex == ex {
		delete(c.pending, ex.Channel())
	}
}

func (c *core) deadline() time.Time {
	if c.w.cfg.ExchangeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.w.cfg.ExchangeTimeout)
}

// viewSource answers paste requests from a view's own store. closed is
// read from the clipboard sync goroutine.
type viewSource struct {
	v      *core
	closed atomic.Bool
}

func (s *viewSource) ID() string { return s.v.id }

func (s *viewSource) Offer(_ context.Context, ch content.Channel) ([]string, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%s: %w", s.v.id, ErrClosed)
	}
	types := s.v.store.Types(ch)
	if len(types) == 0 {
		return nil, fmt.Errorf("%s: %w: %s is empty", s.v.id, content.ErrNotFound, ch)
	}
	return types, nil
}

func (s *viewSource) Fetch(_ context.Context, ch content.Channel, typ string) ([]byte, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%s: %w", s.v.id, ErrClosed)
	}
	e, err := s.v.store.Lookup(ch, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.v.id, err)
	}
	return e.Data, nil
}
