package message

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_RoundTripsThroughWireName(t *testing.T) {
	for _, tag := range AllTags() {
		require.True(t, tag.Valid())
		parsed, err := ParseTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, parsed)
	}

	_, err := ParseTag("gossip")
	assert.Error(t, err)
	assert.False(t, Tag(0).Valid())
	assert.Equal(t, "tag(42)", Tag(42).String())
}

func TestSpan_Rows(t *testing.T) {
	assert.Equal(t, int64(3), Span{First: 4, Last: 6}.Rows())
	assert.Equal(t, int64(1), Span{First: 0, Last: 0}.Rows())
	assert.Equal(t, int64(0), Span{First: 5, Last: 4}.Rows())
}

func TestHandlers_Validate(t *testing.T) {
	noop := func(context.Context, Message) error { return nil }

	h := Handlers{TagBlockTodo: noop, TagTerminate: noop}
	require.NoError(t, h.Validate(TagBlockTodo, TagTerminate))

	err := h.Validate(TagBlockTodo, TagBlockDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block_done")

	bad := Handlers{Tag(99): noop}
	assert.Error(t, bad.Validate())
}

func TestHandlers_DispatchUnknownTagIsProtocolError(t *testing.T) {
	called := false
	h := Handlers{TagBlockDone: func(context.Context, Message) error {
		called = true
		return nil
	}}

	require.NoError(t, h.Dispatch(context.Background(), 0, Message{Tag: TagBlockDone, Source: 2}))
	assert.True(t, called)

	err := h.Dispatch(context.Background(), 0, Message{Tag: TagHeader, Source: 1})
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []Tag{TagBlockDone}, perr.Expected)
	assert.Contains(t, perr.Error(), "got header from rank 1")
}

func TestTransportError_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&TransportError{Rank: 2, Op: "send", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "transport error on rank 2 during send: connection reset", err.Error())
}
