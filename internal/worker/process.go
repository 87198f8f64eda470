package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/batchgrid/internal/binder"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/result"
	"github.com/vk/batchgrid/internal/rowio"
)

// errNoResult is the row error of an engine that returned neither a result
// nor an error.
var errNoResult = errors.New("simulation produced no result")

// ProcessBlock runs every row of block and returns the records. The error
// is only non-nil when ctx is done; row failures become records.
func (w *Worker) ProcessBlock(ctx context.Context, block rowio.Block) (string, error) {
	if w.binder == nil {
		return "", errors.New("worker has not received the header")
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Processing block.", "first", block.First, "last", block.Last)

	var buf result.Buffer
	for i, line := range block.Lines() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		row := binder.Row{ID: block.First + int64(i), Text: line}
		tag, text, err := w.processRow(ctx, row)
		if err != nil {
			return "", err
		}
		rec := result.Record{Row: row.ID, Text: text}
		if w.binder.Mode() == binder.Complex {
			buf.AddTagged(tag, rec)
		} else {
			buf.Add(rec)
		}
		w.rows.Add(1)
	}
	return buf.String(), nil
}

// processRow applies, runs and restores one row. The tree is back to its
// defaults when it returns, whatever happened.
func (w *Worker) processRow(ctx context.Context, row binder.Row) (tag, text string, err error) {
	applied, err := w.binder.Apply(w.model.Conditions, row)
	defer applied.Restore()
	if err != nil {
		return applied.Tag, w.errorRecord(ctx, row.ID, err), nil
	}

	runCtx := ctx
	if w.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.opts.RunTimeout)
		defer cancel()
	}

	out, err := w.engine.Run(runCtx, w.model.Clone(row.ID), row.ID)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", fmt.Errorf("row %d interrupted: %w", row.ID, ctx.Err())
		}
		return applied.Tag, w.errorRecord(ctx, row.ID, err), nil
	}
	if out == nil {
		return applied.Tag, w.errorRecord(ctx, row.ID, errNoResult), nil
	}

	if !w.opts.Verbose {
		return applied.Tag, result.FlatRecord(applied.Kept, out), nil
	}
	text = result.Dump(out)
	if len(applied.Kept) > 0 {
		text = result.FlatRecord(applied.Kept, nil) + "\n" + text
	}
	return applied.Tag, text, nil
}

func (w *Worker) errorRecord(ctx context.Context, id int64, err error) string {
	msg := err.Error()
	var rowErr *binder.RowError
	if errors.As(err, &rowErr) {
		msg = rowErr.Err.Error()
		if rowErr.Column != "" {
			msg = fmt.Sprintf("column %q: %s", rowErr.Column, msg)
		}
	}
	if w.opts.Warnings {
		ctxlog.FromContext(ctx).Warn("Row failed.", "row", id, "error", msg)
		return ""
	}
	return result.ErrorRecord(id, msg)
}
