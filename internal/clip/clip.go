// Package clip connects the system clipboard to the general channel.
// Build constraints select the platform backend:
//
//	clip_darwin.go   macOS, golang.design/x/clipboard plus NSPasteboard changeCount
//	clip_windows.go  Windows, golang.design/x/clipboard plus AddClipboardFormatListener
//	clip_linux.go    Linux, golang.design/x/clipboard with polling
//	clip_other.go    everything else, in-memory only
package clip

import (
	"errors"

	"go.klb.dev/handoff/internal/content"
)

// ErrUnsupportedType is returned when writing an entry the system clipboard
// cannot hold.
var ErrUnsupportedType = errors.New("clip: unsupported type")

// ImagePNG is the type label for image entries.
const ImagePNG = "image/png"

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents, text first. It returns
	// nil, nil if the clipboard is empty or holds only unsupported types.
	Read() ([]content.Entry, error)

	// Write replaces the clipboard contents.
	Write(entries []content.Entry) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// may have changed. The channel is closed by Close.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// signal does a non-blocking send on ch.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
