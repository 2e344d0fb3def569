package hub

import (
	"context"
	"fmt"

	"go.klb.dev/handoff/internal/content"
)

// StaticSource is a Source backed by an in-memory content store. The server
// uses one per remote publisher.
type StaticSource struct {
	id    string
	store *content.Store
}

// NewStaticSource returns an empty StaticSource.
func NewStaticSource(id string) *StaticSource {
	return &StaticSource{id: id, store: content.NewStore()}
}

func (s *StaticSource) ID() string { return s.id }

// Store exposes the backing store.
func (s *StaticSource) Store() *content.Store { return s.store }

// Publish replaces the content of ch and claims it in h.
func (s *StaticSource) Publish(h *Hub, ch content.Channel, entries []content.Entry) error {
	if err := s.store.Publish(ch, entries); err != nil {
		return err
	}
	h.Claim(ch, s)
	return nil
}

func (s *StaticSource) Offer(_ context.Context, ch content.Channel) ([]string, error) {
	types := s.store.Types(ch)
	if len(types) == 0 {
		return nil, fmt.Errorf("%s: %w: %s is empty", s.id, content.ErrNotFound, ch)
	}
	return types, nil
}

func (s *StaticSource) Fetch(_ context.Context, ch content.Channel, typ string) ([]byte, error) {
	e, err := s.store.Lookup(ch, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.id, err)
	}
	return e.Data, nil
}
