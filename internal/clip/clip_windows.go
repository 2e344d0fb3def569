//go:build windows

package clip

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
//
// static LONG handoff_updates;
//
// static LRESULT CALLBACK handoff_listener_proc(HWND hwnd, UINT msg, WPARAM wp, LPARAM lp) {
//     if (msg == WM_CLIPBOARDUPDATE) {
//         InterlockedIncrement(&handoff_updates);
//         return 0;
//     }
//     return DefWindowProc(hwnd, msg, wp, lp);
// }
//
// // handoff_listen registers a message-only window for clipboard updates.
// static HWND handoff_listen(void) {
//     HINSTANCE inst = GetModuleHandle(NULL);
//     WNDCLASS wc = {0};
//     wc.lpfnWndProc = handoff_listener_proc;
//     wc.hInstance = inst;
//     wc.lpszClassName = "HandoffListener";
//     RegisterClass(&wc);
//     HWND hwnd = CreateWindowEx(0, wc.lpszClassName, NULL, 0, 0, 0, 0, 0,
//         HWND_MESSAGE, NULL, inst, NULL);
//     if (hwnd != NULL) {
//         AddClipboardFormatListener(hwnd);
//     }
//     return hwnd;
// }
//
// static void handoff_unlisten(HWND hwnd) {
//     RemoveClipboardFormatListener(hwnd);
//     DestroyWindow(hwnd);
// }
//
// // handoff_drain dispatches queued messages and returns how many clipboard
// // updates arrived since the last call.
// static LONG handoff_drain(HWND hwnd) {
//     MSG msg;
//     while (PeekMessage(&msg, hwnd, 0, 0, PM_REMOVE)) {
//         DispatchMessage(&msg);
//     }
//     return InterlockedExchange(&handoff_updates, 0);
// }
import "C"

import (
	"log/slog"
	"runtime"
	"time"

	"golang.design/x/clipboard"

	"go.klb.dev/handoff/internal/content"
)

const windowsPumpInterval = 50 * time.Millisecond

type windowsBackend struct {
	watchCh chan struct{}
	done    chan struct{}
}

// New returns the Windows clipboard backend. The listener window is drained
// on a ticker and every batch of updates becomes one Watch signal.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}
	b := &windowsBackend{
		watchCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *windowsBackend) Name() string { return "Windows Clipboard" }

func (b *windowsBackend) pump() {
	defer close(b.watchCh)
	// The window's messages can only be read on the thread that created it.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	hwnd := C.handoff_listen()
	defer C.handoff_unlisten(hwnd)

	t := time.NewTicker(windowsPumpInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			if C.handoff_drain(hwnd) > 0 {
				signal(b.watchCh)
			}
		}
	}
}

func (b *windowsBackend) Read() ([]content.Entry, error)      { return readSystem(), nil }
func (b *windowsBackend) Write(entries []content.Entry) error { return writeSystem(entries) }
func (b *windowsBackend) Watch() <-chan struct{}              { return b.watchCh }
func (b *windowsBackend) Close()                              { close(b.done) }
