package clip

import (
	"context"
	"fmt"

	"go.klb.dev/handoff/internal/content"
)

// SourceID is the owner id the system clipboard claims channels under.
const SourceID = "system-clipboard"

// Source answers paste requests on the general channel from a Backend.
type Source struct {
	backend Backend
}

// NewSource returns a hub.Source reading from b.
func NewSource(b Backend) *Source {
	return &Source{backend: b}
}

func (s *Source) ID() string { return SourceID }

func (s *Source) Offer(_ context.Context, ch content.Channel) ([]string, error) {
	entries, err := s.read(ch)
	if err != nil {
		return nil, err
	}
	return content.Types(entries), nil
}

func (s *Source) Fetch(_ context.Context, ch content.Channel, typ string) ([]byte, error) {
	entries, err := s.read(ch)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Type == typ {
			return e.Data, nil
		}
	}
	return nil, fmt.Errorf("%s: %w: %s has no %s", SourceID, content.ErrNotFound, ch, typ)
}

func (s *Source) read(ch content.Channel) ([]content.Entry, error) {
	if ch != content.General {
		return nil, fmt.Errorf("%s: %w: only %s is backed", SourceID, content.ErrNotFound, content.General)
	}
	entries, err := s.backend.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", SourceID, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w: clipboard is empty", SourceID, content.ErrNotFound)
	}
	return entries, nil
}
