// Package hub tracks which source currently owns each channel.
// It is transport-agnostic: views, the system clipboard and remote servers
// all implement Source, claim channels when they publish, and are asked for
// offers and payloads when someone pastes.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.klb.dev/handoff/internal/content"
)

// ErrNoOwner is returned when nothing has published on a channel.
var ErrNoOwner = errors.New("hub: channel has no owner")

// Source is anything that can answer paste requests for the channels it owns.
// Both methods may be called from any goroutine.
type Source interface {
	ID() string
	// Offer returns the type labels available on ch, most preferred first.
	Offer(ctx context.Context, ch content.Channel) ([]string, error)
	// Fetch returns the payload of one advertised type.
	Fetch(ctx context.Context, ch content.Channel, typ string) ([]byte, error)
}

// OwnerChangeListener is notified whenever a channel changes hands. owner is
// nil when the channel was released.
type OwnerChangeListener interface {
	OnOwnerChange(ch content.Channel, owner Source)
}

// Hub routes paste requests to the current owner of a channel.
type Hub struct {
	mu     sync.RWMutex
	owners map[content.Channel]Source

	listenerMu sync.RWMutex
	listeners  []OwnerChangeListener
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{owners: make(map[content.Channel]Source)}
}

// AddOwnerChangeListener registers l for ownership notifications.
func (h *Hub) AddOwnerChangeListener(l OwnerChangeListener) {
	h.listenerMu.Lock()
	h.listeners = append(h.listeners, l)
	h.listenerMu.Unlock()
}

// Claim makes src the owner of ch. Listeners are notified even when src
// already owned the channel, since a claim means the content changed.
func (h *Hub) Claim(ch content.Channel, src Source) {
	h.mu.Lock()
	prev := h.owners[ch]
	h.owners[ch] = src
	h.mu.Unlock()

	if prev == nil || prev.ID() != src.ID() {
		slog.Debug("channel claimed", "channel", ch, "owner", src.ID())
	}
	h.notify(ch, src)
}

// Release drops every claim held by src.
func (h *Hub) Release(src Source) {
	h.mu.Lock()
	var released []content.Channel
	for ch, owner := range h.owners {
		if owner.ID() == src.ID() {
			delete(h.owners, ch)
			released = append(released, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range released {
		slog.Debug("channel released", "channel", ch, "owner", src.ID())
		h.notify(ch, nil)
	}
}

// Owner returns the current owner of ch.
func (h *Hub) Owner(ch content.Channel) (Source, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	src, ok := h.owners[ch]
	return src, ok
}

// Owners returns a snapshot of channel → owner ID.
func (h *Hub) Owners() map[content.Channel]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[content.Channel]string, len(h.owners))
	for ch, src := range h.owners {
		out[ch] = src.ID()
	}
	return out
}

// Channels returns the owned channels sorted by name.
func (h *Hub) Channels() []content.Channel {
	h.mu.RLock()
	out := make([]content.Channel, 0, len(h.owners))
	for ch := range h.owners {
		out = append(out, ch)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Offer asks the owner of ch for its available types.
func (h *Hub) Offer(ctx context.Context, ch content.Channel) ([]string, error) {
	src, ok := h.Owner(ch)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOwner, ch)
	}
	return src.Offer(ctx, ch)
}

// Fetch asks the owner of ch for the payload of typ.
func (h *Hub) Fetch(ctx context.Context, ch content.Channel, typ string) ([]byte, error) {
	src, ok := h.Owner(ch)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOwner, ch)
	}
	return src.Fetch(ctx, ch, typ)
}

// notify calls the registered listeners outside of h.mu.
func (h *Hub) notify(ch content.Channel, owner Source) {
	h.listenerMu.RLock()
	ls := append([]OwnerChangeListener(nil), h.listeners...)
	h.listenerMu.RUnlock()
	for _, l := range ls {
		l.OnOwnerChange(ch, owner)
	}
}
