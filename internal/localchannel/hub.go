package localchannel

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/batchgrid/internal/mailbox"
	"github.com/vk/batchgrid/internal/message"
)

// errHubClosed is the cause reported after a clean Close.
var errHubClosed = errors.New("local channel hub closed")

// Hub owns the mailboxes of every rank in one in-process run.
type Hub struct {
	boxes []*mailbox.Mailbox[message.Message]
}

// New creates a hub for one master and the given number of workers.
func New(workers int) *Hub {
	boxes := make([]*mailbox.Mailbox[message.Message], workers+1)
	for i := range boxes {
		boxes[i] = mailbox.New[message.Message]()
	}
	return &Hub{boxes: boxes}
}

// Size is the number of ranks, master included.
func (h *Hub) Size() int {
	return len(h.boxes)
}

// Endpoint returns the channel for rank. It panics on an out-of-range rank,
// which can only be a wiring bug.
func (h *Hub) Endpoint(rank int) message.Channel {
	if rank < 0 || rank >= len(h.boxes) {
		panic(fmt.Sprintf("localchannel: rank %d outside [0,%d)", rank, len(h.boxes)))
	}
	return &endpoint{hub: h, rank: rank}
}

// Abort closes every mailbox with cause.
func (h *Hub) Abort(cause error) {
	for _, box := range h.boxes {
		box.Close(cause)
	}
}

// Close shuts the hub down after a clean run.
func (h *Hub) Close() error {
	h.Abort(errHubClosed)
	return nil
}

type endpoint struct {
	hub  *Hub
	rank int
}

func (e *endpoint) Rank() int { return e.rank }

func (e *endpoint) Size() int { return e.hub.Size() }

func (e *endpoint) Send(ctx context.Context, target int, msg message.Message) error {
	if target < 0 || target >= len(e.hub.boxes) {
		return &message.TransportError{Rank: e.rank, Op: "send", Err: fmt.Errorf("no such rank %d", target)}
	}
	if !msg.Tag.Valid() {
		return &message.TransportError{Rank: e.rank, Op: "send", Err: fmt.Errorf("refusing to send %s", msg.Tag)}
	}
	if err := ctx.Err(); err != nil {
		return &message.TransportError{Rank: e.rank, Op: "send", Err: err}
	}
	msg.Source = e.rank
	if err := e.hub.boxes[target].Push(msg); err != nil {
		return &message.TransportError{Rank: e.rank, Op: "send", Err: err}
	}
	return nil
}

func (e *endpoint) Receive(ctx context.Context) (message.Message, error) {
	msg, err := e.hub.boxes[e.rank].Pop(ctx)
	if err != nil {
		return message.Message{}, &message.TransportError{Rank: e.rank, Op: "receive", Err: err}
	}
	return msg, nil
}

func (e *endpoint) Abort(cause error) {
	e.hub.Abort(fmt.Errorf("rank %d aborted the run: %w", e.rank, cause))
}

func (e *endpoint) Close() error { return nil }
