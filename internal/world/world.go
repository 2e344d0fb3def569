// Package world is a single-threaded, event-driven runtime of views that
// publish and paste typed content.
//
// All World and View methods must be called from the goroutine that calls
// Pump, normally from inside a Handler. Sources outside the world (the
// system clipboard, remote servers) are queried from helper goroutines whose
// results are posted back and applied on the next Pump.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
)

// DefaultExchangeTimeout bounds how long an exchange may wait for its owner.
const DefaultExchangeTimeout = 5 * time.Second

const inboxSize = 64

var (
	ErrClosed       = errors.New("world: closed")
	ErrUnknownTimer = errors.New("world: unknown timer")
)

var worldSeq atomic.Uint64

// Config controls a World.
type Config struct {
	// ExchangeTimeout fails exchanges whose owner does not answer in time.
	// Zero disables the timeout.
	ExchangeTimeout time.Duration
	// Channels lists the channels views may use and the actions an accepted
	// offer may request on each.
	Channels map[content.Channel]exchange.Actions
}

// DefaultChannels returns the general clipboard (copy only) and the
// drag-and-drop channel (every action).
func DefaultChannels() map[content.Channel]exchange.Actions {
	return map[content.Channel]exchange.Actions{
		content.General: {exchange.ActionCopy},
		content.DragDrop: {
			exchange.ActionCopy,
			exchange.ActionMove,
			exchange.ActionLink,
			exchange.ActionPrivate,
		},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ExchangeTimeout: DefaultExchangeTimeout,
		Channels:        DefaultChannels(),
	}
}

type job func()

// World owns a set of views and the event queue that drives them.
type World struct {
	cfg    Config
	hub    *hub.Hub
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	inbox chan job
	queue []job

	views        []*core
	nextView     uint64
	nextExchange uint64
	closed       bool
}

// New returns a World that resolves channel owners through h. A nil h gets
// a private hub.
func New(h *hub.Hub, cfg Config) *World {
	if h == nil {
		h = hub.New()
	}
	if cfg.Channels == nil {
		cfg.Channels = DefaultChannels()
	}
	if cfg.ExchangeTimeout < 0 {
		cfg.ExchangeTimeout = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &World{
		cfg:    cfg,
		hub:    h,
		id:     fmt.Sprintf("w%d", worldSeq.Add(1)),
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan job, inboxSize),
	}
}

// Hub returns the ownership registry used by this world.
func (w *World) Hub() *hub.Hub { return w.hub }

// Config returns the world configuration.
func (w *World) Config() Config { return w.cfg }

// Closed reports whether Close has been called.
func (w *World) Closed() bool { return w.closed }

// Pump processes one batch of events: everything queued before the call,
// then due timers and expired exchanges. When nothing is ready it waits
// according to wait, but never past the next timer or exchange deadline.
func (w *World) Pump(ctx context.Context, wait Wait) error {
	if w.closed {
		return ErrClosed
	}
	w.drain()
	if !w.ready(time.Now()) {
		if err := w.wait(ctx, wait); err != nil {
			return err
		}
	}

	now := time.Now()
	batch := w.queue
	w.queue = nil
	for _, j := range batch {
		if w.closed {
			return nil
		}
		j()
	}
	w.fireTimers(now)
	w.expireExchanges(now)
	return nil
}

// RunUntil pumps with wait until done reports true, the world is closed or
// ctx ends.
func (w *World) RunUntil(ctx context.Context, wait Wait, done func() bool) error {
	for !done() {
		if err := w.Pump(ctx, wait); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close closes every view and abandons outstanding external requests.
func (w *World) Close() {
	if w.closed {
		return
	}
	for _, c := range slices.Clone(w.views) {
		c.Close()
	}
	w.cancel()
	w.closed = true
	w.queue = nil
	slog.Debug("world closed", "world", w.id)
}

func (w *World) ready(now time.Time) bool {
	if len(w.queue) > 0 {
		return true
	}
	next, ok := w.nextDeadline()
	return ok && !next.After(now)
}

func (w *World) wait(ctx context.Context, wait Wait) error {
	limit, bounded := wait.limit()
	if next, ok := w.nextDeadline(); ok {
		d := max(time.Until(next), 0)
		if !bounded || d < limit {
			limit, bounded = d, true
		}
	}
	if bounded && limit <= 0 {
		return nil
	}

	var timeout <-chan time.Time
	if bounded {
		t := time.NewTimer(limit)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case j := <-w.inbox:
		w.queue = append(w.queue, j)
		w.drain()
	case <-timeout:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// drain moves everything posted by helper goroutines onto the queue.
func (w *World) drain() {
	for {
		select {
		case j := <-w.inbox:
			w.queue = append(w.queue, j)
		default:
			return
		}
	}
}

func (w *World) enqueue(j job) {
	w.queue = append(w.queue, j)
}

// post hands a job to the event loop from another goroutine. It gives up
// once the world is closed.
func (w *World) post(j job) {
	select {
	case w.inbox <- j:
	case <-w.ctx.Done():
	}
}

// ask runs query against src and schedules the continuation it returns.
// Views of this world are answered on the next turn; any other source is
// called from a goroutine so that the loop never blocks on it.
func (w *World) ask(src hub.Source, query func(ctx context.Context) job) {
	if vs, ok := src.(*viewSource); ok && vs.v.w == w {
		w.enqueue(func() { query(w.ctx)() })
		return
	}
	ctx, cancel := w.ctx, context.CancelFunc(func() {})
	if w.cfg.ExchangeTimeout > 0 {
		ctx, cancel = context.WithTimeout(w.ctx, w.cfg.ExchangeTimeout)
	}
	go func() {
		defer cancel()
		w.post(query(ctx))
	}()
}

func (w *World) nextDeadline() (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if !ok || t.Before(next) {
			next, ok = t, true
		}
	}
	for _, c := range w.views {
		for _, t := range c.timers {
			consider(t.next)
		}
		for _, p := range c.pending {
			consider(p.deadline)
		}
	}
	return next, ok
}

func (w *World) fireTimers(now time.Time) {
	for _, c := range slices.Clone(w.views) {
		c.fireTimers(now)
	}
}

func (w *World) expireExchanges(now time.Time) {
	for _, c := range slices.Clone(w.views) {
		c.expire(now)
	}
}

func (w *World) removeView(c *core) {
	w.views = slices.DeleteFunc(w.views, func(o *core) bool { return o == c })
}
