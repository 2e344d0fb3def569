// Package content holds the typed payloads that views publish and receive.
//
// An Entry is one representation of a piece of content (a type label such as
// "text/plain" plus the exact bytes). A channel carries an ordered list of
// entries with unique type labels; index 0 is the most preferred
// representation.
package content

import (
	"errors"
	"fmt"
)

// Channel names an independent clipboard-like content category.
type Channel string

const (
	// General is the ordinary copy/paste clipboard.
	General Channel = "general"
	// DragDrop carries the content of a drag-and-drop gesture.
	DragDrop Channel = "dnd"
)

// String implements fmt.Stringer.
func (c Channel) String() string { return string(c) }

// TextPlain is the type label used for plain text entries.
const TextPlain = "text/plain"

var (
	// ErrNotFound is returned when reading an entry that does not exist.
	ErrNotFound = errors.New("content: not found")
	// ErrOutOfRange is returned for an index beyond the type count.
	ErrOutOfRange = errors.New("content: index out of range")
	// ErrDuplicateType is returned when a publish repeats a type label.
	ErrDuplicateType = errors.New("content: duplicate type label")
	// ErrEmptyType is returned when a publish carries an unlabelled entry.
	ErrEmptyType = errors.New("content: empty type label")
)

// Entry is a single typed representation. Data is exact: no terminator is
// implied, though a publisher may choose to include one in the bytes.
type Entry struct {
	Type string
	Data []byte
}

// Len returns the payload length in bytes.
func (e Entry) Len() int { return len(e.Data) }

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	return Entry{Type: e.Type, Data: clone(e.Data)}
}

// NewText returns a text/plain entry holding exactly the bytes of s.
func NewText(s string) Entry {
	return Entry{Type: TextPlain, Data: []byte(s)}
}

// NewCText returns a text/plain entry holding s followed by a NUL byte, the
// way C clients publish strings.
func NewCText(s string) Entry {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return Entry{Type: TextPlain, Data: b}
}

// Text returns the payload as a string with one trailing NUL removed.
func (e Entry) Text() string {
	b := e.Data
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}

// Validate checks that type labels are non-empty and pairwise distinct.
func Validate(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Type == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyType, i)
		}
		if _, dup := seen[e.Type]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateType, e.Type)
		}
		seen[e.Type] = struct{}{}
	}
	return nil
}

// Types returns the type labels of entries in order.
func Types(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}

// CloneAll deep-copies a list of entries.
func CloneAll(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
