// Package ipc locates the local socket on which a running "handoff serve"
// exposes the exchange service to CLI tools on the same host.
//
// The socket carries the same gRPC service as the TCP listener, without TLS
// or token auth; access is limited by the socket file's permissions.
package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"
)

const socketName = "handoff.sock"

// SocketPath returns the path of the IPC socket:
//
//   - $HANDOFF_SOCKET when set
//   - $XDG_RUNTIME_DIR/handoff.sock on Linux desktops
//   - $TMPDIR/handoff.sock otherwise
func SocketPath() string {
	if s := os.Getenv("HANDOFF_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// Target returns the gRPC dial target for the socket.
func Target() string {
	return "unix://" + SocketPath()
}

// IsRunning reports whether a server appears to be listening on the socket.
// It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := net.DialTimeout("unix", SocketPath(), time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen listens on the socket, replacing a stale socket file left by a
// crashed server. It fails if another server is still listening.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("ipc: %s: another server is listening", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ipc: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("ipc: %w", err)
	}
	return ln, nil
}
