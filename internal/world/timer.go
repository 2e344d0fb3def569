package world

import (
	"fmt"
	"slices"
	"time"
)

// TimerID identifies a timer within one view.
type TimerID uint64

type timer struct {
	id       TimerID
	interval time.Duration
	next     time.Time
}

// StartTimer starts a recurring timer. Starting an existing id replaces it.
func (c *core) StartTimer(id TimerID, interval time.Duration) error {
	if c.closed {
		return ErrClosed
	}
	if interval <= 0 {
		return fmt.Errorf("world: timer %d: interval must be positive, got %s", id, interval)
	}
	c.timers[id] = &timer{id: id, interval: interval, next: time.Now().Add(interval)}
	return nil
}

// StopTimer stops a timer started with StartTimer.
func (c *core) StopTimer(id TimerID) error {
	if _, ok := c.timers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTimer, id)
	}
	delete(c.timers, id)
	return nil
}

// fireTimers dispatches every due timer in id order. Missed ticks collapse
// into one.
func (c *core) fireTimers(now time.Time) {
	ids := make([]TimerID, 0, len(c.timers))
	for id, t := range c.timers {
		if !t.next.After(now) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		if c.closed {
			return
		}
		t, ok := c.timers[id]
		if !ok {
			continue
		}
		t.next = t.next.Add(t.interval)
		if !t.next.After(now) {
			t.next = now.Add(t.interval)
		}
		c.dispatch(TimerEvent{ID: id})
	}
}
