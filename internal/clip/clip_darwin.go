//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework AppKit
// #import <AppKit/AppKit.h>
//
// // Generation counter of the general pasteboard, bumped by every writer.
// static long handoff_pasteboard_generation(void) {
//     @autoreleasepool {
//         return (long)[[NSPasteboard generalPasteboard] changeCount];
//     }
// }
import "C"

import (
	"log/slog"
	"time"

	"golang.design/x/clipboard"

	"go.klb.dev/handoff/internal/content"
)

const darwinPollInterval = 100 * time.Millisecond

type darwinBackend struct {
	generation C.long
	watchCh    chan struct{}
	done       chan struct{}
}

// New returns the macOS clipboard backend. NSPasteboard has no change
// notification, so Watch is fed by polling the pasteboard generation.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}
	b := &darwinBackend{
		generation: C.handoff_pasteboard_generation(),
		watchCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go b.poll()
	return b
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

func (b *darwinBackend) poll() {
	defer close(b.watchCh)
	t := time.NewTicker(darwinPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			if g := C.handoff_pasteboard_generation(); g != b.generation {
				b.generation = g
				signal(b.watchCh)
			}
		}
	}
}

func (b *darwinBackend) Read() ([]content.Entry, error)      { return readSystem(), nil }
func (b *darwinBackend) Write(entries []content.Entry) error { return writeSystem(entries) }
func (b *darwinBackend) Watch() <-chan struct{}              { return b.watchCh }
func (b *darwinBackend) Close()                              { close(b.done) }
