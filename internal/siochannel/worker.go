package siochannel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/mailbox"
	"github.com/vk/batchgrid/internal/message"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Worker is the endpoint of one worker rank.
type Worker struct {
	rank    int
	size    int
	io      *socket.Socket
	inbox   *mailbox.Mailbox[message.Message]
	closing atomic.Bool
}

// DialOptions describe how a worker joins the master.
type DialOptions struct {
	// URL is the master's address, as returned by Master.URL.
	URL     string
	Rank    int
	Workers int
	Token   string
	// Timeout bounds the connection attempt.
	Timeout time.Duration
}

// Dial connects to the master and waits until the connection is accepted.
func Dial(ctx context.Context, o DialOptions) (*Worker, error) {
	logger := ctxlog.FromContext(ctx).With("rank", o.Rank, "master", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master URL: %w", err)
	}
	if o.Rank <= message.MasterRank || o.Rank > o.Workers {
		return nil, fmt.Errorf("worker rank %d outside [1,%d]", o.Rank, o.Workers)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)
	opts.SetAuth(map[string]any{"rank": o.Rank, "token": o.Token})

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	w := &Worker{
		rank:  o.Rank,
		size:  o.Workers + 1,
		io:    io,
		inbox: mailbox.New[message.Message](),
	}

	deliver := func(tag message.Tag) func(...any) {
		return func(args ...any) {
			msg, err := decodeFrame(tag, args)
			if err != nil {
				w.inbox.Close(&message.TransportError{Rank: w.rank, Op: "receive", Err: err})
				return
			}
			_ = w.inbox.Push(msg)
		}
	}
	io.On(eventHeader, deliver(message.TagHeader))
	io.On(eventBlockTodo, deliver(message.TagBlockTodo))
	io.On(eventBlockDone, deliver(message.TagBlockDone))
	io.On(eventTerminate, deliver(message.TagTerminate))
	io.On(eventAbort, func(args ...any) {
		cause := fmt.Errorf("master aborted the run: %s", abortReason(args))
		w.inbox.Close(&message.TransportError{Rank: w.rank, Op: "receive", Err: cause})
	})
	io.On("disconnect", func(reason ...any) {
		if w.closing.Load() {
			return
		}
		logger.Debug("Disconnected from master.", "reason", reason)
		w.inbox.Close(&message.TransportError{Rank: w.rank, Op: "receive", Err: fmt.Errorf("disconnected from master: %v", reason)})
	})

	connected := make(chan error, 1)
	io.Once("connect", func(...any) {
		connected <- nil
	})
	io.Once("connect_error", func(errs ...any) {
		var err error = errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting to master...")
	io.Connect()

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case err := <-connected:
		if err != nil {
			w.closing.Store(true)
			io.Disconnect()
			return nil, &message.TransportError{Rank: o.Rank, Op: "connect", Err: err}
		}
	case <-ctx.Done():
		w.closing.Store(true)
		io.Disconnect()
		return nil, &message.TransportError{Rank: o.Rank, Op: "connect", Err: ctx.Err()}
	case <-time.After(timeout):
		w.closing.Store(true)
		io.Disconnect()
		return nil, &message.TransportError{Rank: o.Rank, Op: "connect", Err: fmt.Errorf("timed out after %s", timeout)}
	}

	logger.Info("Joined master.")
	return w, nil
}

// Rank implements message.Channel.
func (w *Worker) Rank() int { return w.rank }

// Size implements message.Channel.
func (w *Worker) Size() int { return w.size }

// Send implements message.Channel. Workers only talk to the master.
func (w *Worker) Send(ctx context.Context, target int, msg message.Message) error {
	fail := func(err error) error {
		return &message.TransportError{Rank: w.rank, Op: "send", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if target != message.MasterRank {
		return fail(fmt.Errorf("workers can only send to rank %d, not %d", message.MasterRank, target))
	}
	if !msg.Tag.Valid() {
		return fail(fmt.Errorf("refusing to send %s", msg.Tag))
	}

	msg.Source = w.rank
	body, err := encodeFrame(msg)
	if err != nil {
		return fail(err)
	}
	if err := w.io.Emit(msg.Tag.String(), body); err != nil {
		return fail(err)
	}
	return nil
}

// Receive implements message.Channel.
func (w *Worker) Receive(ctx context.Context) (message.Message, error) {
	msg, err := w.inbox.Pop(ctx)
	if err != nil {
		var transportErr *message.TransportError
		if errors.As(err, &transportErr) {
			return message.Message{}, err
		}
		return message.Message{}, &message.TransportError{Rank: w.rank, Op: "receive", Err: err}
	}
	return msg, nil
}

// Abort tells the master to tear the run down.
func (w *Worker) Abort(cause error) {
	_ = w.io.Emit(eventAbort, cause.Error())
	w.inbox.Close(fmt.Errorf("rank %d aborted the run: %w", w.rank, cause))
}

// Close disconnects from the master.
func (w *Worker) Close() error {
	if !w.closing.CompareAndSwap(false, true) {
		return nil
	}
	w.inbox.Close(errClosed)
	w.io.Disconnect()
	return nil
}
