package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/message"
	"github.com/vk/batchgrid/internal/rowio"
)

// DefaultBlockSize is the number of rows per block when none is configured.
const DefaultBlockSize = 5000

// ErrNoWorkers is returned when the channel has no worker ranks.
var ErrNoWorkers = errors.New("at least one worker is required")

// Options tune a dispatch.
type Options struct {
	BlockSize int
}

// Stats summarizes a finished dispatch.
type Stats struct {
	Blocks int64
	Rows   int64
	// PerWorker counts the blocks completed by each rank.
	PerWorker map[int]int64
}

// Dispatcher is the master rank.
type Dispatcher struct {
	ch   message.Channel
	in   *rowio.Reader
	out  *rowio.Writer
	opts Options

	counters counters
}

// New creates a dispatcher that reads from in and writes records to out.
func New(ch message.Channel, in *rowio.Reader, out *rowio.Writer, opts Options) *Dispatcher {
	if opts.BlockSize < 1 {
		opts.BlockSize = DefaultBlockSize
	}
	return &Dispatcher{ch: ch, in: in, out: out, opts: opts}
}

// Progress returns the live counters. It is safe to call while Run is
// executing.
func (d *Dispatcher) Progress() Progress {
	return d.counters.snapshot()
}

// run is the state of one dispatch loop.
type run struct {
	*Dispatcher
	// inFlight maps a busy worker rank to the span it is working on.
	inFlight map[int]message.Span
	stats    Stats
}

// Run drives the whole batch: header broadcast, dispatch, drain and
// termination. Any error tears the run down for every rank.
func (d *Dispatcher) Run(ctx context.Context) (Stats, error) {
	ctx = ctxlog.With(ctx, "rank", d.ch.Rank())
	logger := ctxlog.FromContext(ctx)

	r := &run{
		Dispatcher: d,
		inFlight:   make(map[int]message.Span),
		stats:      Stats{PerWorker: make(map[int]int64)},
	}
	if err := r.dispatch(ctx); err != nil {
		logger.Error("Dispatch failed, aborting the run.", "error", err)
		d.ch.Abort(err)
		return r.stats, err
	}
	d.counters.finished.Store(true)
	logger.Info("Dispatch complete.", "blocks", r.stats.Blocks, "rows", r.stats.Rows)
	return r.stats, nil
}

func (r *run) dispatch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	workers := r.ch.Size() - 1
	if workers < 1 {
		return ErrNoWorkers
	}

	handlers := message.Handlers{message.TagBlockDone: r.handleDone}
	if err := handlers.Validate(message.TagBlockDone); err != nil {
		return err
	}

	header, err := r.in.ReadHeader()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if err := message.Broadcast(ctx, r.ch, message.Message{Tag: message.TagHeader, Payload: []byte(header)}); err != nil {
		return err
	}
	logger.Debug("Header broadcast.", "workers", workers)

	for rank := message.MasterRank + 1; rank <= workers; rank++ {
		sent, err := r.sendNext(ctx, rank)
		if err != nil {
			return err
		}
		if !sent {
			logger.Debug("Input exhausted during bootstrap.", "idle_workers", workers-rank+1)
			break
		}
	}

	for len(r.inFlight) > 0 {
		msg, err := message.ReceiveBlock(ctx, r.ch)
		if err != nil {
			return err
		}
		if err := handlers.Dispatch(ctx, r.ch.Rank(), msg); err != nil {
			return err
		}
	}

	return message.Broadcast(ctx, r.ch, message.Message{Tag: message.TagTerminate})
}

// sendNext reads the next block and sends it to rank. It reports false once
// the input is exhausted.
func (r *run) sendNext(ctx context.Context, rank int) (bool, error) {
	block, ok, err := r.in.ReadBlock(r.opts.BlockSize)
	if err != nil {
		return false, fmt.Errorf("reading input: %w", err)
	}
	if !ok {
		return false, nil
	}

	span := message.Span{First: block.First, Last: block.Last}
	if err := message.SendBlock(ctx, r.ch, rank, message.TagBlockTodo, []byte(block.Text), span); err != nil {
		return false, err
	}
	r.inFlight[rank] = span
	r.counters.blocksSent.Add(1)
	r.counters.rowsRead.Add(int64(block.Rows()))
	r.counters.busy.Store(int64(len(r.inFlight)))
	ctxlog.FromContext(ctx).Debug("Block sent.", "worker", rank, "first", span.First, "last", span.Last)
	return true, nil
}

func (r *run) handleDone(ctx context.Context, msg message.Message) error {
	span, busy := r.inFlight[msg.Source]
	if !busy {
		return &message.ProtocolError{Rank: r.ch.Rank(), Got: msg, Reason: "worker has no block in flight"}
	}
	if span != msg.Span {
		return &message.ProtocolError{
			Rank:   r.ch.Rank(),
			Got:    msg,
			Reason: fmt.Sprintf("completed (%d,%d) but was sent (%d,%d)", msg.Span.First, msg.Span.Last, span.First, span.Last),
		}
	}
	delete(r.inFlight, msg.Source)
	r.counters.busy.Store(int64(len(r.inFlight)))

	if err := r.out.Write(string(msg.Payload)); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	r.stats.Blocks++
	r.stats.Rows += span.Rows()
	r.stats.PerWorker[msg.Source]++
	r.counters.blocksDone.Add(1)
	r.counters.rowsDone.Add(span.Rows())

	_, err := r.sendNext(ctx, msg.Source)
	return err
}
