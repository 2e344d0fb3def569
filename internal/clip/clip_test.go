package clip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/hub"
)

func TestMemory(t *testing.T) {
	m := NewMemory()
	got, err := m.Read()
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, m.Write([]content.Entry{content.NewText("hi")}))
	select {
	case <-m.Watch():
	default:
		t.Fatal("write did not signal watchers")
	}
	got, err = m.Read()
	require.NoError(t, err)
	assert.Equal(t, []content.Entry{content.NewText("hi")}, got)

	assert.ErrorIs(t, m.Write([]content.Entry{{Data: []byte("x")}}), content.ErrEmptyType)

	m.Close()
	_, ok := <-m.Watch()
	assert.False(t, ok)
	m.Close()
}

func TestSource(t *testing.T) {
	m := NewMemory()
	src := NewSource(m)
	ctx := context.Background()

	_, err := src.Offer(ctx, content.General)
	require.ErrorIs(t, err, content.ErrNotFound)

	png := content.Entry{Type: ImagePNG, Data: []byte{0x89, 'P'}}
	require.NoError(t, m.Write([]content.Entry{content.NewText("hi"), png}))

	types, err := src.Offer(ctx, content.General)
	require.NoError(t, err)
	assert.Equal(t, []string{content.TextPlain, ImagePNG}, types)

	data, err := src.Fetch(ctx, content.General, ImagePNG)
	require.NoError(t, err)
	assert.Equal(t, png.Data, data)

	_, err = src.Fetch(ctx, content.General, "text/html")
	assert.ErrorIs(t, err, content.ErrNotFound)
	_, err = src.Offer(ctx, content.DragDrop)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]content.Entry{
		{Type: ImagePNG, Data: []byte{1}},
		{Type: "text/html", Data: []byte("<p>x</p>")},
		content.NewCText("x"),
	})
	assert.Equal(t, []content.Entry{
		content.NewText("x"),
		{Type: ImagePNG, Data: []byte{1}},
	}, got)
}

func startSync(t *testing.T) (*hub.Hub, *Memory) {
	t.Helper()
	h := hub.New()
	m := NewMemory()
	s := NewSync(h, m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h, m
}

func ownerID(h *hub.Hub) string {
	owner, ok := h.Owner(content.General)
	if !ok {
		return ""
	}
	return owner.ID()
}

func TestSyncWritesClaimsToClipboard(t *testing.T) {
	h, m := startSync(t)

	// Let Run register its listener before claiming.
	src := hub.NewStaticSource("probe")
	require.Eventually(t, func() bool {
		_ = src.Publish(h, content.General, []content.Entry{content.NewCText("hello")})
		got, _ := m.Read()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	got, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, []content.Entry{content.NewText("hello")}, got)
	assert.Never(t, func() bool { return ownerID(h) == SourceID }, 100*time.Millisecond, 10*time.Millisecond,
		"writing to the clipboard must not reclaim the channel")
}

func TestSyncClaimsOnClipboardChange(t *testing.T) {
	h, m := startSync(t)

	require.NoError(t, m.Write([]content.Entry{content.NewText("from desktop")}))
	require.Eventually(t, func() bool { return ownerID(h) == SourceID }, time.Second, 10*time.Millisecond)

	data, err := h.Fetch(context.Background(), content.General, content.TextPlain)
	require.NoError(t, err)
	assert.Equal(t, "from desktop", string(data))
}
