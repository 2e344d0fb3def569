package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishVisibleImmediately(t *testing.T) {
	s := NewStore()
	entries := []Entry{
		NewCText("Copied Text"),
		{Type: "text/html", Data: []byte("<b>Copied</b>")},
	}
	require.NoError(t, s.Publish(General, entries))

	require.Equal(t, 2, s.TypeCount(General))
	for i, want := range entries {
		typ, err := s.TypeAt(General, i)
		require.NoError(t, err)
		assert.Equal(t, want.Type, typ)

		got, err := s.Read(General, i)
		require.NoError(t, err)
		assert.Equal(t, want.Data, got.Data)
	}

	got, err := s.Read(General, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Len())
	assert.Equal(t, "Copied Text", got.Text())
}

func TestPublishReplacesWholesale(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(General, []Entry{
		NewText("one"),
		{Type: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	}))
	require.NoError(t, s.Publish(General, []Entry{{Type: "text/uri-list", Data: []byte("file:///tmp")}}))

	assert.Equal(t, []string{"text/uri-list"}, s.Types(General))
	_, err := s.Lookup(General, "image/png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishRejectsDuplicateTypes(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(General, []Entry{NewText("keep")}))

	err := s.Publish(General, []Entry{NewText("a"), NewText("b")})
	require.ErrorIs(t, err, ErrDuplicateType)

	got, err := s.Read(General, 0)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Text())
}

func TestPublishCopiesCallerBuffers(t *testing.T) {
	s := NewStore()
	buf := []byte("mutable")
	require.NoError(t, s.Publish(General, []Entry{{Type: TextPlain, Data: buf}}))
	buf[0] = 'X'

	got, err := s.Read(General, 0)
	require.NoError(t, err)
	assert.Equal(t, "mutable", string(got.Data))

	got.Data[0] = 'Y'
	again, err := s.Read(General, 0)
	require.NoError(t, err)
	assert.Equal(t, "mutable", string(again.Data))
}

func TestIndexErrors(t *testing.T) {
	s := NewStore()

	_, err := s.Read(General, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.TypeAt(General, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, s.Publish(General, []Entry{NewText("x")}))
	_, err = s.TypeAt(General, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.TypeAt(General, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.Read(General, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelsAreIndependent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(General, []Entry{NewText("clip")}))
	require.NoError(t, s.Publish(DragDrop, []Entry{NewText("drag")}))
	require.NoError(t, s.Publish(DragDrop, nil))

	assert.Equal(t, 1, s.TypeCount(General))
	assert.Equal(t, 0, s.TypeCount(DragDrop))
	assert.Equal(t, []Channel{General}, s.Channels())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.ErrorIs(t, Validate([]Entry{{Type: "", Data: []byte("x")}}), ErrEmptyType)
	assert.ErrorIs(t, Validate([]Entry{NewText("a"), NewCText("b")}), ErrDuplicateType)
}
