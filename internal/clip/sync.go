package clip

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"sync"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/hub"
)

// Sync mirrors the general channel to and from the system clipboard.
// Whenever another source claims the channel its content is written to the
// backend; whenever the backend changes the clipboard claims the channel.
type Sync struct {
	h       *hub.Hub
	backend Backend
	src     *Source
	wake    chan struct{}

	mu   sync.Mutex
	last []content.Entry
}

// NewSync creates the sync but does not start it.
func NewSync(h *hub.Hub, backend Backend) *Sync {
	return &Sync{
		h:       h,
		backend: backend,
		src:     NewSource(backend),
		wake:    make(chan struct{}, 1),
	}
}

// Source returns the hub.Source the clipboard claims the channel with.
func (s *Sync) Source() *Source { return s.src }

// OnOwnerChange implements hub.OwnerChangeListener.
func (s *Sync) OnOwnerChange(ch content.Channel, owner hub.Source) {
	if ch != content.General || owner == nil || owner.ID() == SourceID {
		return
	}
	signal(s.wake)
}

// Run registers with the hub and mirrors changes until ctx ends or the
// backend is closed.
func (s *Sync) Run(ctx context.Context) {
	s.h.AddOwnerChangeListener(s)
	slog.Info("system clipboard sync started", "backend", s.backend.Name())

	// Writer: copy the current owner's content to the system clipboard.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				s.push(ctx)
			}
		}
	}()

	// Watcher: claim the channel when the system clipboard changes.
	s.pull()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.backend.Watch():
			if !ok {
				return
			}
			s.pull()
		}
	}
}

func (s *Sync) pull() {
	entries, err := s.backend.Read()
	if err != nil {
		slog.Error("system clipboard read failed", "err", err)
		return
	}
	if len(entries) == 0 || !s.remember(entries) {
		return
	}
	content.LogEntries("system clipboard changed", SourceID, content.General, entries)
	s.h.Claim(content.General, s.src)
}

func (s *Sync) push(ctx context.Context) {
	owner, ok := s.h.Owner(content.General)
	if !ok || owner.ID() == SourceID {
		return
	}
	types, err := owner.Offer(ctx, content.General)
	if err != nil {
		slog.Debug("system clipboard not updated", "owner", owner.ID(), "err", err)
		return
	}
	var entries []content.Entry
	for _, typ := range types {
		if formatSupported(typ) {
			data, err := owner.Fetch(ctx, content.General, typ)
			if err != nil {
				slog.Warn("system clipboard fetch failed", "owner", owner.ID(), "type", typ, "err", err)
				continue
			}
			entries = append(entries, content.Entry{Type: typ, Data: data})
		}
	}
	entries = Normalize(entries)
	if len(entries) == 0 || !s.remember(entries) {
		return
	}
	if err := s.backend.Write(entries); err != nil {
		slog.Error("system clipboard write failed", "err", err)
		return
	}
	slog.Debug("system clipboard updated", "owner", owner.ID(), "entries", len(entries))
}

// remember records entries as the last content seen on either side and
// reports whether they differ from the previous record.
func (s *Sync) remember(entries []content.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.EqualFunc(entries, s.last, sameEntry) {
		return false
	}
	s.last = content.CloneAll(entries)
	return true
}

// Normalize keeps the entries the system clipboard can hold, text first,
// with C-string terminators removed from text.
func Normalize(entries []content.Entry) []content.Entry {
	var out []content.Entry
	for _, typ := range []string{content.TextPlain, ImagePNG} {
		for _, e := range entries {
			if e.Type != typ {
				continue
			}
			if typ == content.TextPlain {
				e = content.NewText(e.Text())
			}
			out = append(out, e)
		}
	}
	return out
}

func formatSupported(typ string) bool {
	return typ == content.TextPlain || typ == ImagePNG
}

func sameEntry(a, b content.Entry) bool {
	return a.Type == b.Type && bytes.Equal(a.Data, b.Data)
}
