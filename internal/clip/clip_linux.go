//go:build linux

package clip

import (
	"context"
	"log/slog"

	"golang.design/x/clipboard"

	"go.klb.dev/handoff/internal/content"
)

type linuxBackend struct {
	watchCh chan struct{}
	cancel  context.CancelFunc
}

// New returns the Linux clipboard backend, or an in-memory backend if no
// X11 or Wayland display is available. clipboard.Init is called here rather
// than in init() so that commands that never touch the system clipboard
// stay quiet on headless hosts.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &linuxBackend{
		watchCh: make(chan struct{}, 1),
		cancel:  cancel,
	}
	go b.watch(ctx)
	return b
}

func (b *linuxBackend) Name() string { return "Linux clipboard (watch)" }

func (b *linuxBackend) watch(ctx context.Context) {
	defer close(b.watchCh)
	text := clipboard.Watch(ctx, clipboard.FmtText)
	img := clipboard.Watch(ctx, clipboard.FmtImage)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-text:
			if !ok {
				return
			}
		case _, ok := <-img:
			if !ok {
				return
			}
		}
		signal(b.watchCh)
	}
}

func (b *linuxBackend) Read() ([]content.Entry, error)      { return readSystem(), nil }
func (b *linuxBackend) Write(entries []content.Entry) error { return writeSystem(entries) }
func (b *linuxBackend) Watch() <-chan struct{}              { return b.watchCh }
func (b *linuxBackend) Close()                              { b.cancel() }
