package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/dispatcher"
	"github.com/vk/batchgrid/internal/rowio"
)

// Run executes the role the app was configured for and returns once the
// batch is finished. For the master a non-nil error means the run failed and
// some records may be missing.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	if a.config.Role == RoleWorker {
		return a.runWorker(ctx)
	}
	if a.config.Template {
		return a.writeTemplate(ctx)
	}

	in, closeIn, err := a.openInput()
	if err != nil {
		return err
	}
	defer closeIn()
	out, closeOut, err := a.openOutput()
	if err != nil {
		return err
	}

	reader := rowio.NewReader(in)
	writer := rowio.NewWriter(out)

	var stats dispatcher.Stats
	switch a.config.Mode {
	case ModeSpawned:
		stats, err = a.runSpawned(ctx, reader, writer)
	default:
		stats, err = a.runInProcess(ctx, reader, writer)
	}
	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	a.logger.Info("🏁 Batch finished.", "blocks", stats.Blocks, "rows", stats.Rows, "per_worker", perWorker(stats))
	return nil
}

// perWorker renders the per-rank block counts in rank order.
func perWorker(stats dispatcher.Stats) []string {
	ranks := make([]int, 0, len(stats.PerWorker))
	for rank := range stats.PerWorker {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	out := make([]string, len(ranks))
	for i, rank := range ranks {
		out[i] = fmt.Sprintf("%d:%d", rank, stats.PerWorker[rank])
	}
	return out
}
