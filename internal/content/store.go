package content

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the per-view content of every channel. Each channel is replaced
// wholesale on publish, so readers see either the old list or the new one.
//
// Store is safe for concurrent use: the owning view writes from the event
// loop while remote service handlers may read it from other goroutines.
type Store struct {
	mu       sync.RWMutex
	channels map[Channel][]Entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{channels: make(map[Channel][]Entry)}
}

// Publish replaces the content of ch. The entries are copied, so the caller
// may reuse its buffers. An empty list clears the channel.
func (s *Store) Publish(ch Channel, entries []Entry) error {
	if err := Validate(entries); err != nil {
		return err
	}
	next := CloneAll(entries)

	s.mu.Lock()
	if len(next) == 0 {
		delete(s.channels, ch)
	} else {
		s.channels[ch] = next
	}
	s.mu.Unlock()
	return nil
}

// TypeCount returns the number of entries on ch.
func (s *Store) TypeCount(ch Channel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels[ch])
}

// TypeAt returns the type label at index.
func (s *Store) TypeAt(ch Channel, index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.channels[ch]
	if index < 0 || index >= len(entries) {
		return "", fmt.Errorf("%w: %d of %d on %s", ErrOutOfRange, index, len(entries), ch)
	}
	return entries[index].Type, nil
}

// Read returns a copy of the entry at index.
func (s *Store) Read(ch Channel, index int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.channels[ch]
	if index < 0 || index >= len(entries) {
		return Entry{}, fmt.Errorf("%w: %s[%d]", ErrNotFound, ch, index)
	}
	return entries[index].Clone(), nil
}

// Lookup returns a copy of the entry with the given type label.
func (s *Store) Lookup(ch Channel, typ string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.channels[ch] {
		if e.Type == typ {
			return e.Clone(), nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s %q", ErrNotFound, ch, typ)
}

// Types returns the type labels on ch in preference order.
func (s *Store) Types(ch Channel) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Types(s.channels[ch])
}

// Snapshot returns a deep copy of every entry on ch.
func (s *Store) Snapshot(ch Channel) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneAll(s.channels[ch])
}

// Channels returns the non-empty channels, sorted by name.
func (s *Store) Channels() []Channel {
	s.mu.RLock()
	out := make([]Channel, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
