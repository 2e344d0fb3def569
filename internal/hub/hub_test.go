package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/handoff/internal/content"
)

type recorder struct {
	events []string
}

func (r *recorder) OnOwnerChange(ch content.Channel, owner Source) {
	id := "<none>"
	if owner != nil {
		id = owner.ID()
	}
	r.events = append(r.events, string(ch)+"="+id)
}

func TestClaimAndFetch(t *testing.T) {
	h := New()
	rec := &recorder{}
	h.AddOwnerChangeListener(rec)

	a := NewStaticSource("a")
	require.NoError(t, a.Publish(h, content.General, []content.Entry{
		content.NewText("hello"),
		{Type: "text/html", Data: []byte("<p>hello</p>")},
	}))

	types, err := h.Offer(context.Background(), content.General)
	require.NoError(t, err)
	assert.Equal(t, []string{content.TextPlain, "text/html"}, types)

	data, err := h.Fetch(context.Background(), content.General, "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(data))

	_, err = h.Fetch(context.Background(), content.General, "image/png")
	assert.ErrorIs(t, err, content.ErrNotFound)

	assert.Equal(t, map[content.Channel]string{content.General: "a"}, h.Owners())
	assert.Equal(t, []string{"general=a"}, rec.events)
}

func TestLatestClaimWins(t *testing.T) {
	h := New()
	a := NewStaticSource("a")
	b := NewStaticSource("b")
	require.NoError(t, a.Publish(h, content.General, []content.Entry{content.NewText("a")}))
	require.NoError(t, b.Publish(h, content.General, []content.Entry{content.NewText("b")}))
	require.NoError(t, a.Publish(h, content.DragDrop, []content.Entry{content.NewText("drag")}))

	owner, ok := h.Owner(content.General)
	require.True(t, ok)
	assert.Equal(t, "b", owner.ID())

	h.Release(b)
	_, ok = h.Owner(content.General)
	assert.False(t, ok)
	assert.Equal(t, []content.Channel{content.DragDrop}, h.Channels())
}

func TestNoOwner(t *testing.T) {
	h := New()
	_, err := h.Offer(context.Background(), content.General)
	assert.ErrorIs(t, err, ErrNoOwner)
	_, err = h.Fetch(context.Background(), content.General, content.TextPlain)
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestReleaseNotifies(t *testing.T) {
	h := New()
	rec := &recorder{}
	a := NewStaticSource("a")
	require.NoError(t, a.Publish(h, content.General, []content.Entry{content.NewText("x")}))
	h.AddOwnerChangeListener(rec)

	h.Release(a)
	assert.Equal(t, []string{"general=<none>"}, rec.events)
}

func TestStaticSourceEmptyOffer(t *testing.T) {
	s := NewStaticSource("s")
	_, err := s.Offer(context.Background(), content.General)
	assert.ErrorIs(t, err, content.ErrNotFound)
}
