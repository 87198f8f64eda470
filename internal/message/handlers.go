package message

import (
	"context"
	"fmt"
	"sort"
)

// HandlerFunc reacts to one received message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handlers maps each tag a receive point accepts to its handler.
type Handlers map[Tag]HandlerFunc

// Validate checks, before any message is received, that every required tag
// has a handler and that no handler is registered for a tag outside the
// closed set.
func (h Handlers) Validate(required ...Tag) error {
	for tag := range h {
		if !tag.Valid() {
			return fmt.Errorf("handler registered for unknown %s", tag)
		}
	}
	var missing []string
	for _, tag := range required {
		if h[tag] == nil {
			missing = append(missing, tag.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("no handler for tags %v", missing)
	}
	return nil
}

// Dispatch routes msg to its handler. A tag without a handler is a protocol
// error for the receiving rank.
func (h Handlers) Dispatch(ctx context.Context, rank int, msg Message) error {
	fn, ok := h[msg.Tag]
	if !ok || fn == nil {
		return &ProtocolError{Rank: rank, Expected: h.tags(), Got: msg}
	}
	return fn(ctx, msg)
}

func (h Handlers) tags() []Tag {
	tags := make([]Tag, 0, len(h))
	for tag := range h {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
