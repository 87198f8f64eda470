package message

import (
	"fmt"
	"strings"
)

// TransportError reports a failure of the underlying substrate. It is always
// fatal for the run.
type TransportError struct {
	Rank int
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on rank %d during %s: %v", e.Rank, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a message that arrived where a specific exchange was
// mandatory, e.g. a header that did not come from the master.
type ProtocolError struct {
	Rank     int
	Expected []Tag
	Got      Message
	Reason   string
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "protocol error on rank %d: got %s from rank %d", e.Rank, e.Got.Tag, e.Got.Source)
	if len(e.Expected) > 0 {
		names := make([]string, len(e.Expected))
		for i, t := range e.Expected {
			names[i] = t.String()
		}
		fmt.Fprintf(&b, ", expected %s", strings.Join(names, " or "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}
