package message

import (
	"context"
	"fmt"
)

// MasterRank is the rank of the dispatcher. Workers occupy 1..Size()-1.
const MasterRank = 0

// Tag identifies the kind of a message. The set is closed.
type Tag int

const (
	// TagHeader carries the input header from the master to every worker.
	TagHeader Tag = iota + 1
	// TagBlockTodo carries a block of rows from the master to a worker.
	TagBlockTodo
	// TagBlockDone carries a worker's results for a block back to the master.
	TagBlockDone
	// TagTerminate tells a worker that no more blocks will follow.
	TagTerminate
)

var tagNames = map[Tag]string{
	TagHeader:    "header",
	TagBlockTodo: "block_todo",
	TagBlockDone: "block_done",
	TagTerminate: "terminate",
}

// AllTags lists every tag in protocol order.
func AllTags() []Tag {
	return []Tag{TagHeader, TagBlockTodo, TagBlockDone, TagTerminate}
}

// String returns the wire name of the tag.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// Valid reports whether t belongs to the closed tag set.
func (t Tag) Valid() bool {
	_, ok := tagNames[t]
	return ok
}

// ParseTag maps a wire name back to its tag.
func ParseTag(name string) (Tag, error) {
	for tag, n := range tagNames {
		if n == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("unknown message tag %q", name)
}

// Span is the inclusive row id range of a block.
type Span struct {
	First int64
	Last  int64
}

// Rows returns the number of rows covered by the span.
func (s Span) Rows() int64 {
	if s.Last < s.First {
		return 0
	}
	return s.Last - s.First + 1
}

// Message is one logical unit exchanged between ranks. Block messages carry
// their payload and span together so a receiver never observes one without
// the other.
type Message struct {
	Tag     Tag
	Source  int
	Payload []byte
	Span    Span
}

// Channel is a blocking, tagged, point-to-point link between ranked peers.
type Channel interface {
	// Rank is this endpoint's rank.
	Rank() int
	// Size is the total number of ranks, master included.
	Size() int
	// Send delivers msg to target. Any failure is a *TransportError.
	Send(ctx context.Context, target int, msg Message) error
	// Receive blocks until a message from any source with any tag arrives.
	Receive(ctx context.Context) (Message, error)
	// Abort tears down the whole run; every blocked Receive on every rank
	// returns an error carrying cause.
	Abort(cause error)
	// Close releases this endpoint's resources.
	Close() error
}

// SendBlock sends a payload and its row span under tag as one message.
func SendBlock(ctx context.Context, ch Channel, target int, tag Tag, payload []byte, span Span) error {
	return ch.Send(ctx, target, Message{
		Tag:     tag,
		Source:  ch.Rank(),
		Payload: payload,
		Span:    span,
	})
}

// ReceiveBlock receives the next message and checks that block-carrying
// tags arrived with a well-formed span.
func ReceiveBlock(ctx context.Context, ch Channel) (Message, error) {
	msg, err := ch.Receive(ctx)
	if err != nil {
		return Message{}, err
	}
	if (msg.Tag == TagBlockTodo || msg.Tag == TagBlockDone) && msg.Span.Last < msg.Span.First {
		return Message{}, &ProtocolError{
			Rank:   ch.Rank(),
			Got:    msg,
			Reason: fmt.Sprintf("malformed block span (%d,%d)", msg.Span.First, msg.Span.Last),
		}
	}
	return msg, nil
}

// Broadcast sends msg to every worker rank in order.
func Broadcast(ctx context.Context, ch Channel, msg Message) error {
	for rank := MasterRank + 1; rank < ch.Size(); rank++ {
		if err := ch.Send(ctx, rank, msg); err != nil {
			return err
		}
	}
	return nil
}
