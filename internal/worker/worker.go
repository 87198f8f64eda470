package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vk/batchgrid/internal/binder"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/message"
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/internal/rowio"
)

// errTerminated stops the receive loop after a terminate message.
var errTerminated = errors.New("terminated")

// Options tune how rows are run and reported.
type Options struct {
	// Verbose writes every view in full instead of its final row.
	Verbose bool
	// Warnings sends row errors to the log and writes an empty record.
	Warnings bool
	// RunTimeout bounds a single simulation call; zero means no limit.
	RunTimeout time.Duration
}

// Worker is one worker rank. It owns the model, and with it the parameter
// tree, for its whole life.
type Worker struct {
	ch     message.Channel
	model  *config.Model
	engine registry.Engine
	opts   Options

	binder binder.Binder
	state  atomic.Int32
	blocks atomic.Int64
	rows   atomic.Int64
}

// New creates a worker on ch. model must not be shared with other workers.
func New(ch message.Channel, model *config.Model, engine registry.Engine, opts Options) *Worker {
	return &Worker{ch: ch, model: model, engine: engine, opts: opts}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// Blocks returns the number of blocks processed so far.
func (w *Worker) Blocks() int64 { return w.blocks.Load() }

// Rows returns the number of rows processed so far.
func (w *Worker) Rows() int64 { return w.rows.Load() }

// Run receives the header, then serves blocks until the master sends
// terminate. It returns nil after a clean termination.
func (w *Worker) Run(ctx context.Context) error {
	ctx = ctxlog.With(ctx, "rank", w.ch.Rank())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.")

	handlers := message.Handlers{
		message.TagBlockTodo: w.handleBlock,
		message.TagTerminate: w.handleTerminate,
	}
	if err := handlers.Validate(message.TagBlockTodo, message.TagTerminate); err != nil {
		return err
	}

	if err := w.receiveHeader(ctx); err != nil {
		return err
	}

	for {
		msg, err := message.ReceiveBlock(ctx, w.ch)
		if err == nil && msg.Source != message.MasterRank {
			err = &message.ProtocolError{Rank: w.ch.Rank(), Got: msg, Reason: "only the master may send work"}
		}
		if err == nil {
			err = handlers.Dispatch(ctx, w.ch.Rank(), msg)
		}
		if errors.Is(err, errTerminated) {
			logger.Debug("Worker finished.", "blocks", w.Blocks(), "rows", w.Rows())
			return nil
		}
		if err != nil {
			return w.fail(ctx, err)
		}
	}
}

func (w *Worker) receiveHeader(ctx context.Context) error {
	msg, err := w.ch.Receive(ctx)
	if err != nil {
		return w.fail(ctx, err)
	}
	if msg.Tag != message.TagHeader || msg.Source != message.MasterRank {
		return w.fail(ctx, &message.ProtocolError{
			Rank:     w.ch.Rank(),
			Expected: []message.Tag{message.TagHeader},
			Got:      msg,
			Reason:   "the master must send the header first",
		})
	}

	header := string(msg.Payload)
	b, err := binder.New(header, w.model.Conditions)
	if err != nil {
		return w.fail(ctx, fmt.Errorf("cannot bind header: %w", err))
	}
	w.binder = b
	w.setState(Idle)
	ctxlog.FromContext(ctx).Debug("Header received.", "mode", b.Mode().String())
	return nil
}

// fail stops the worker. Anything but a transport failure tears the whole
// run down, since the master would otherwise wait on this rank forever.
func (w *Worker) fail(ctx context.Context, err error) error {
	w.setState(Stopped)
	var transportErr *message.TransportError
	if !errors.As(err, &transportErr) {
		ctxlog.FromContext(ctx).Error("Worker aborting the run.", "error", err)
		w.ch.Abort(err)
	}
	return err
}

func (w *Worker) handleBlock(ctx context.Context, msg message.Message) error {
	w.setState(Running)
	block := rowio.Block{Text: string(msg.Payload), First: msg.Span.First, Last: msg.Span.Last}
	if got, want := len(block.Lines()), block.Rows(); got != want {
		return &message.ProtocolError{
			Rank:   w.ch.Rank(),
			Got:    msg,
			Reason: fmt.Sprintf("block (%d,%d) carries %d rows", msg.Span.First, msg.Span.Last, got),
		}
	}

	out, err := w.ProcessBlock(ctx, block)
	if err != nil {
		return err
	}
	if err := message.SendBlock(ctx, w.ch, message.MasterRank, message.TagBlockDone, []byte(out), msg.Span); err != nil {
		return err
	}
	w.blocks.Add(1)
	w.setState(Idle)
	return nil
}

func (w *Worker) handleTerminate(ctx context.Context, msg message.Message) error {
	w.setState(Stopped)
	return errTerminated
}
