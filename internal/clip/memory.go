package clip

import (
	"sync"

	"go.klb.dev/handoff/internal/content"
)

// Memory is an in-process clipboard. It stands in for the system clipboard
// on hosts without a display server.
type Memory struct {
	mu      sync.Mutex
	entries []content.Entry
	watchCh chan struct{}
	closed  bool
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read() ([]content.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return content.CloneAll(m.entries), nil
}

// Write replaces the contents and signals watchers, like a system
// clipboard that reports its own writes.
func (m *Memory) Write(entries []content.Entry) error {
	if err := content.Validate(entries); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.entries = content.CloneAll(entries)
	signal(m.watchCh)
	return nil
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }

func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.watchCh)
	}
}
