package dispatcher_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/dispatcher"
	"github.com/vk/batchgrid/internal/localchannel"
	"github.com/vk/batchgrid/internal/message"
	"github.com/vk/batchgrid/internal/rowio"
	"github.com/vk/batchgrid/internal/testutil"
	"github.com/vk/batchgrid/internal/worker"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

const definition = `
condition "cond1" {
  portA = 0
}
`

// runBatch runs a dispatcher and real workers in process.
func runBatch(t require.TestingT, ctx context.Context, workers, blockSize int, input string) (string, dispatcher.Stats, error) {
	hub := localchannel.New(workers)
	defer hub.Close()

	var out strings.Builder
	d := dispatcher.New(hub.Endpoint(0), rowio.NewReader(strings.NewReader(input)), rowio.NewWriter(&out), dispatcher.Options{BlockSize: blockSize})

	g, gctx := errgroup.WithContext(ctx)
	for rank := 1; rank <= workers; rank++ {
		model := testutil.LoadModel(t, definition)
		engine := &testutil.RecordingEngine{Watch: []string{"cond1.portA"}}
		w := worker.New(hub.Endpoint(rank), model, engine, worker.Options{})
		g.Go(func() error { return w.Run(gctx) })
	}
	var stats dispatcher.Stats
	g.Go(func() error {
		var err error
		stats, err = d.Run(gctx)
		return err
	})
	err := g.Wait()
	return out.String(), stats, err
}

func sortedLines(s string) []string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if s == "" {
		lines = nil
	}
	sort.Strings(lines)
	return lines
}

func TestDispatcher_AllRowsComeBack(t *testing.T) {
	ctx, _ := testutil.Context(t)
	input := "cond1.portA\n1\n2\n3\n\n4\n5\n6\n7\n"

	out, stats, err := runBatch(t, ctx, 2, 2, input)
	require.NoError(t, err)

	want := []string{"1", "2", "3", "4", "5", "6", "7"}
	if diff := cmp.Diff(want, sortedLines(out)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	// The blank line closes the first block early: {1,2} {3} {4,5} {6,7}.
	assert.Equal(t, int64(4), stats.Blocks)
	assert.Equal(t, int64(7), stats.Rows)

	var perWorker int64
	for _, n := range stats.PerWorker {
		perWorker += n
	}
	assert.Equal(t, stats.Blocks, perWorker)
}

func TestDispatcher_MoreWorkersThanBlocks(t *testing.T) {
	ctx, _ := testutil.Context(t)
	out, stats, err := runBatch(t, ctx, 4, 5000, "cond1.portA\n1\n2\n3\n")
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
	assert.Equal(t, int64(1), stats.Blocks)
}

func TestDispatcher_HeaderOnly(t *testing.T) {
	ctx, _ := testutil.Context(t)
	out, stats, err := runBatch(t, ctx, 2, 10, "cond1.portA\n")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, stats.Rows)
}

func TestDispatcher_RowCountIsConserved(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rapid.Check(t, func(rt *rapid.T) {
		workers := rapid.IntRange(1, 4).Draw(rt, "workers")
		blockSize := rapid.IntRange(1, 6).Draw(rt, "blockSize")
		values := rapid.SliceOfN(rapid.IntRange(-50, 50), 0, 40).Draw(rt, "values")
		blankAfter := rapid.SliceOfN(rapid.Bool(), len(values), len(values)).Draw(rt, "blankAfter")

		var in strings.Builder
		in.WriteString("cond1.portA\n")
		want := make([]string, 0, len(values))
		for i, v := range values {
			fmt.Fprintf(&in, "%d\n", v)
			if blankAfter[i] {
				in.WriteString("\n")
			}
			want = append(want, fmt.Sprint(v))
		}
		sort.Strings(want)
		if len(want) == 0 {
			want = nil
		}

		out, stats, err := runBatch(rt, ctx, workers, blockSize, in.String())
		if err != nil {
			rt.Fatalf("run failed: %v", err)
		}
		if diff := cmp.Diff(want, sortedLines(out)); diff != "" {
			rt.Fatalf("records mismatch (-want +got):\n%s", diff)
		}
		if stats.Rows != int64(len(values)) {
			rt.Fatalf("stats count %d rows, want %d", stats.Rows, len(values))
		}
	})
}

func TestDispatcher_NoWorkers(t *testing.T) {
	ctx, _ := testutil.Context(t)
	hub := localchannel.New(0)
	d := dispatcher.New(hub.Endpoint(0), rowio.NewReader(strings.NewReader("a\n1\n")), rowio.NewWriter(&strings.Builder{}), dispatcher.Options{})

	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, dispatcher.ErrNoWorkers)
}

func TestDispatcher_MissingHeaderAbortsWorkers(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, _, err := runBatch(t, ctx, 2, 10, "")
	assert.ErrorIs(t, err, rowio.ErrNoHeader)
}

func TestDispatcher_WorkerConfigErrorFailsTheRun(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, _, err := runBatch(t, ctx, 2, 10, "cond1.nope\n1\n")
	require.Error(t, err)
}

// fakeWorker answers the first block with a wrong span.
func TestDispatcher_SpanMismatchIsProtocolError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	hub := localchannel.New(1)
	d := dispatcher.New(hub.Endpoint(0), rowio.NewReader(strings.NewReader("h\n1\n2\n")), rowio.NewWriter(&strings.Builder{}), dispatcher.Options{BlockSize: 10})

	go func() {
		w := hub.Endpoint(1)
		if _, err := w.Receive(ctx); err != nil {
			return
		}
		msg, err := w.Receive(ctx)
		if err != nil {
			return
		}
		bad := message.Span{First: msg.Span.First, Last: msg.Span.Last + 1}
		_ = message.SendBlock(ctx, w, 0, message.TagBlockDone, nil, bad)
	}()

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		var protoErr *message.ProtocolError
		require.True(t, errors.As(err, &protoErr), "got %v", err)
		assert.Contains(t, err.Error(), "completed (0,2) but was sent (0,1)")
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not fail")
	}
}

func TestDispatcher_Progress(t *testing.T) {
	ctx, _ := testutil.Context(t)
	hub := localchannel.New(1)
	defer hub.Close()

	var out strings.Builder
	d := dispatcher.New(hub.Endpoint(0), rowio.NewReader(strings.NewReader("cond1.portA\n1\n2\n3\n")), rowio.NewWriter(&out), dispatcher.Options{BlockSize: 1})
	w := worker.New(hub.Endpoint(1), testutil.LoadModel(t, definition), &testutil.RecordingEngine{}, worker.Options{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		_, err := d.Run(gctx)
		return err
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, dispatcher.Progress{
		BlocksSent: 3,
		BlocksDone: 3,
		RowsRead:   3,
		RowsDone:   3,
		Busy:       0,
		Finished:   true,
	}, d.Progress())
}
