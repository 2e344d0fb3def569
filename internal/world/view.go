package world

import (
	"fmt"
	"log/slog"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
)

// Default view size, used as the accept region until SetFrame is called.
const (
	DefaultWidth  = 512
	DefaultHeight = 512
)

// Handler reacts to the events of one view.
type Handler[T any] func(v *View[T], ev Event)

// View is a participant in the world with its own content store. T is the
// caller's per-view state, reachable from handlers through Data.
type View[T any] struct {
	*core
	data    T
	handler Handler[T]
}

// NewView adds a view to w. The view receives no events until Show is
// called, except for the results of exchanges it starts.
func NewView[T any](w *World, data T, h Handler[T]) *View[T] {
	w.nextView++
	v := &View[T]{data: data, handler: h}
	c := &core{
		w:       w,
		id:      fmt.Sprintf("%s/view/%d", w.id, w.nextView),
		store:   content.NewStore(),
		timers:  make(map[TimerID]*timer),
		pending: make(map[content.Channel]*pending),
		frame:   exchange.Region{Width: DefaultWidth, Height: DefaultHeight},
		closed:  w.closed,
	}
	c.src = &viewSource{v: c}
	c.src.closed.Store(c.closed)
	c.dispatch = func(ev Event) {
		if c.closed || v.handler == nil {
			return
		}
		v.handler(v, ev)
	}
	v.core = c
	if !c.closed {
		w.views = append(w.views, c)
	}
	return v
}

// Data returns the caller's state attached to the view.
func (v *View[T]) Data() *T { return &v.data }

// core is the part of a view that does not depend on its user data.
type core struct {
	w        *World
	id       string
	store    *content.Store
	src      *viewSource
	timers   map[TimerID]*timer
	pending  map[content.Channel]*pending
	frame    exchange.Region
	shown    bool
	closed   bool
	dispatch func(Event)
}

// ID returns the identifier the view uses as a channel owner.
func (c *core) ID() string { return c.id }

// World returns the world the view belongs to.
func (c *core) World() *World { return c.w }

// Closed reports whether the view has been closed.
func (c *core) Closed() bool { return c.closed }

// Frame returns the view's region, used as the target of accepted offers.
func (c *core) Frame() exchange.Region { return c.frame }

// SetFrame changes the view's region.
func (c *core) SetFrame(r exchange.Region) { c.frame = r }

// Show makes the view visible; the first call queues an ExposeEvent.
func (c *core) Show() error {
	if c.closed {
		return ErrClosed
	}
	if !c.shown {
		c.shown = true
		c.w.enqueue(func() { c.dispatch(ExposeEvent{}) })
	}
	return nil
}

// RequestClose queues a CloseEvent. The handler decides whether to Close.
func (c *core) RequestClose() {
	if c.closed {
		return
	}
	c.w.enqueue(func() { c.dispatch(CloseEvent{}) })
}

// Close cancels the view's pending exchanges and timers without further
// callbacks, and gives up ownership of every channel it published on.
func (c *core) Close() {
	if c.closed {
		return
	}
	for ch, p := range c.pending {
		p.ex.Cancel()
		delete(c.pending, ch)
	}
	clear(c.timers)
	c.closed = true
	c.src.closed.Store(true)
	c.w.hub.Release(c.src)
	c.w.removeView(c)
	slog.Debug("view closed", "view", c.id)
}

// Publish replaces the view's content on ch and makes the view the owner of
// ch. The content is readable as soon as Publish returns.
func (c *core) Publish(ch content.Channel, entries ...content.Entry) error {
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.w.cfg.Channels[ch]; !ok {
		return fmt.Errorf("%w: channel %s", exchange.ErrUnsupported, ch)
	}
	if err := c.store.Publish(ch, entries); err != nil {
		return err
	}
	content.LogEntries("content published", c.id, ch, entries)
	c.w.hub.Claim(ch, c.src)
	return nil
}

// TypeCount returns the number of entries in the view's store for ch.
func (c *core) TypeCount(ch content.Channel) int { return c.store.TypeCount(ch) }

// TypeAt returns the type label at index in the view's store for ch.
func (c *core) TypeAt(ch content.Channel, index int) (string, error) {
	return c.store.TypeAt(ch, index)
}

// Read returns the entry at index in the view's store for ch.
func (c *core) Read(ch content.Channel, index int) (content.Entry, error) {
	return c.store.Read(ch, index)
}

// Snapshot returns every entry in the view's store for ch.
func (c *core) Snapshot(ch content.Channel) []content.Entry { return c.store.Snapshot(ch) }
