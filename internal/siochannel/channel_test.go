package siochannel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/message"
	"github.com/vk/batchgrid/internal/testutil"
)

func TestChannel_RoundTripOverLoopback(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	master, err := Listen(ctx, "127.0.0.1:0", 1, "secret")
	require.NoError(t, err)
	defer master.Close()

	worker, err := Dial(ctx, DialOptions{URL: master.URL(), Rank: 1, Workers: 1, Token: "secret", Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer worker.Close()

	require.NoError(t, master.WaitForWorkers(ctx, 10*time.Second))
	assert.Equal(t, 2, master.Size())
	assert.Equal(t, 2, worker.Size())

	require.NoError(t, message.Broadcast(ctx, master, message.Message{Tag: message.TagHeader, Payload: []byte("cond1.portA")}))
	msg, err := worker.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, message.TagHeader, msg.Tag)
	assert.Equal(t, "cond1.portA", string(msg.Payload))

	require.NoError(t, message.SendBlock(ctx, worker, message.MasterRank, message.TagBlockDone, []byte("1\n"), message.Span{First: 0, Last: 0}))
	msg, err = message.ReceiveBlock(ctx, master)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Source)
	assert.Equal(t, "1\n", string(msg.Payload))

	var transportErr *message.TransportError
	err = worker.Send(ctx, 2, message.Message{Tag: message.TagBlockDone})
	assert.True(t, errors.As(err, &transportErr))
}

func TestChannel_WrongTokenIsRejected(t *testing.T) {
	ctx, _ := testutil.Context(t)

	master, err := Listen(ctx, "127.0.0.1:0", 1, "secret")
	require.NoError(t, err)
	defer master.Close()

	if w, err := Dial(ctx, DialOptions{URL: master.URL(), Rank: 1, Workers: 1, Token: "wrong", Timeout: 2 * time.Second}); err == nil {
		defer w.Close()
	}
	assert.Error(t, master.WaitForWorkers(ctx, 500*time.Millisecond))
}

func TestDial_RejectsBadRank(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := Dial(ctx, DialOptions{URL: "http://127.0.0.1:1", Rank: 0, Workers: 1})
	assert.Error(t, err)
}
