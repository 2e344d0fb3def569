package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/handoff/internal/content"
)

var frame = Region{Width: 512, Height: 512}

func TestHappyPath(t *testing.T) {
	ex := New(1, "view/1", content.General)
	require.Equal(t, Requested, ex.State())
	_, ok := ex.Selected()
	assert.False(t, ok)

	require.NoError(t, ex.Offer([]string{"text/html", content.TextPlain}))
	require.Equal(t, Offered, ex.State())

	require.NoError(t, ex.Accept(1, ActionCopy, frame))
	require.Equal(t, Accepted, ex.State())
	idx, ok := ex.Selected()
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, content.TextPlain, ex.SelectedType())
	assert.Equal(t, frame, ex.Region())

	payload := []byte("Copied Text\x00")
	require.NoError(t, ex.Deliver(content.TextPlain, payload))
	require.Equal(t, Delivered, ex.State())
	assert.True(t, ex.State().Terminal())

	payload[0] = 'X'
	got, ok := ex.Received()
	require.True(t, ok)
	assert.Equal(t, "Copied Text", got.Text())
	assert.Equal(t, 12, got.Len())
}

func TestInvalidSelectionKeepsOffered(t *testing.T) {
	ex := New(1, "v", content.General)
	require.NoError(t, ex.Offer([]string{content.TextPlain}))

	err := ex.Accept(5, ActionCopy, frame)
	require.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, Offered, ex.State())

	err = ex.Accept(-1, ActionCopy, frame)
	require.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, Offered, ex.State())

	require.NoError(t, ex.Accept(0, ActionCopy, frame))
	assert.Equal(t, Accepted, ex.State())
}

func TestWrongStateTransitions(t *testing.T) {
	ex := New(1, "v", content.General)
	assert.ErrorIs(t, ex.Accept(0, ActionCopy, frame), ErrInvalidState)
	assert.ErrorIs(t, ex.Deliver(content.TextPlain, nil), ErrInvalidState)
	assert.Equal(t, Requested, ex.State())

	require.NoError(t, ex.Offer([]string{content.TextPlain}))
	assert.ErrorIs(t, ex.Offer([]string{content.TextPlain}), ErrInvalidState)
}

func TestMalformedOffers(t *testing.T) {
	for name, types := range map[string][]string{
		"empty":     nil,
		"duplicate": {"a", "a"},
		"blank":     {""},
	} {
		t.Run(name, func(t *testing.T) {
			ex := New(1, "v", content.General)
			err := ex.Offer(types)
			require.ErrorIs(t, err, ErrExchangeFailed)
			assert.Equal(t, Requested, ex.State())
		})
	}
}

func TestDeliverWrongTypeFails(t *testing.T) {
	ex := New(1, "v", content.General)
	require.NoError(t, ex.Offer([]string{content.TextPlain}))
	require.NoError(t, ex.Accept(0, ActionCopy, frame))

	err := ex.Deliver("image/png", []byte{1})
	require.ErrorIs(t, err, ErrExchangeFailed)
	assert.Equal(t, Failed, ex.State())
	_, ok := ex.Received()
	assert.False(t, ok)
}

func TestFailAndCancelAreTerminal(t *testing.T) {
	cause := errors.New("advertiser declined")
	ex := New(1, "v", content.DragDrop)
	ex.Fail(cause)
	assert.Equal(t, Failed, ex.State())
	assert.ErrorIs(t, ex.Err(), ErrExchangeFailed)
	assert.ErrorIs(t, ex.Err(), cause)

	ex.Cancel()
	assert.Equal(t, Failed, ex.State())

	ex = New(2, "v", content.DragDrop)
	ex.Cancel()
	assert.Equal(t, Cancelled, ex.State())
	ex.Fail(cause)
	assert.Equal(t, Cancelled, ex.State())
	assert.NoError(t, ex.Err())
}

func TestTimeoutMatchesExchangeFailed(t *testing.T) {
	ex := New(1, "v", content.General)
	ex.Fail(ErrTimeout)
	assert.ErrorIs(t, ex.Err(), ErrTimeout)
	assert.ErrorIs(t, ex.Err(), ErrExchangeFailed)
}

func TestActions(t *testing.T) {
	a, err := ParseAction("move")
	require.NoError(t, err)
	assert.Equal(t, ActionMove, a)

	_, err = ParseAction("teleport")
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.True(t, Actions{ActionCopy, ActionLink}.Allows(ActionLink))
	assert.False(t, Actions{ActionCopy}.Allows(ActionMove))
	assert.False(t, Action(42).Valid())

	ex := New(1, "v", content.General)
	require.NoError(t, ex.Offer([]string{content.TextPlain}))
	assert.ErrorIs(t, ex.Accept(0, Action(42), frame), ErrUnsupported)
	assert.Equal(t, Offered, ex.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "offered", Offered.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.False(t, Accepted.Terminal())
}
