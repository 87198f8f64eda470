package siochannel

import (
	"encoding/json"
	"fmt"

	"github.com/vk/batchgrid/internal/message"
)

// Event names. They are untyped constants so they can be handed to the
// socket.io event APIs directly.
const (
	eventHeader    = "header"
	eventBlockTodo = "block_todo"
	eventBlockDone = "block_done"
	eventTerminate = "terminate"
	// eventAbort tears the run down from either side.
	eventAbort = "_abort"
)

// frame is the JSON body of one message event.
type frame struct {
	Source  int    `json:"source"`
	Payload []byte `json:"payload,omitempty"`
	First   int64  `json:"first"`
	Last    int64  `json:"last"`
}

func encodeFrame(msg message.Message) (string, error) {
	b, err := json.Marshal(frame{Source: msg.Source, Payload: msg.Payload, First: msg.Span.First, Last: msg.Span.Last})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeFrame rebuilds a message from the arguments of a tag event.
func decodeFrame(tag message.Tag, args []any) (message.Message, error) {
	if len(args) == 0 {
		return message.Message{}, fmt.Errorf("%s event without a body", tag)
	}
	var raw []byte
	switch body := args[0].(type) {
	case string:
		raw = []byte(body)
	case []byte:
		raw = body
	default:
		return message.Message{}, fmt.Errorf("%s event body has type %T", tag, args[0])
	}

	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return message.Message{}, fmt.Errorf("decoding %s frame: %w", tag, err)
	}
	return message.Message{
		Tag:     tag,
		Source:  f.Source,
		Payload: f.Payload,
		Span:    message.Span{First: f.First, Last: f.Last},
	}, nil
}

// abortReason extracts the text sent with an abort event.
func abortReason(args []any) string {
	if len(args) > 0 {
		if s, ok := args[0].(string); ok && s != "" {
			return s
		}
	}
	return "peer aborted the run"
}
