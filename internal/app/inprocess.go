package app

import (
	"context"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/dispatcher"
	"github.com/vk/batchgrid/internal/localchannel"
	"github.com/vk/batchgrid/internal/rowio"
	"github.com/vk/batchgrid/internal/worker"
	"golang.org/x/sync/errgroup"
)

// runInProcess runs the master and every worker as goroutines over an
// in-process channel.
func (a *App) runInProcess(ctx context.Context, reader *rowio.Reader, writer *rowio.Writer) (dispatcher.Stats, error) {
	logger := ctxlog.FromContext(ctx)
	hub := localchannel.New(a.config.Workers)
	defer hub.Close()

	workers := make([]*worker.Worker, 0, a.config.Workers)
	for rank := 1; rank <= a.config.Workers; rank++ {
		w, err := a.newWorker(ctx, hub.Endpoint(rank))
		if err != nil {
			return dispatcher.Stats{}, err
		}
		workers = append(workers, w)
	}

	d := dispatcher.New(hub.Endpoint(0), reader, writer, dispatcher.Options{BlockSize: a.config.BlockSize})
	stopHealth := a.startHealthcheckServer(ctx, d)
	defer stopHealth()

	logger.Info("🚀 Starting in-process batch...", "workers", a.config.Workers, "block_size", a.config.BlockSize)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.Run(gctx) })
	}
	var stats dispatcher.Stats
	g.Go(func() error {
		var err error
		stats, err = d.Run(gctx)
		return err
	})
	err := g.Wait()
	return stats, err
}
