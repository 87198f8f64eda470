package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/google/uuid"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/dispatcher"
	"github.com/vk/batchgrid/internal/rowio"
	"github.com/vk/batchgrid/internal/siochannel"
	"golang.org/x/sync/errgroup"
)

// Launcher starts worker rank with the given command-line arguments and
// blocks until it exits.
type Launcher func(ctx context.Context, rank int, args []string) error

// execLauncher runs workers as child processes of the current binary. Their
// stdout and stderr both go to diag.
func execLauncher(diag io.Writer) Launcher {
	return func(ctx context.Context, rank int, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to find own executable: %w", err)
		}
		cmd := exec.CommandContext(ctx, exe, args...)
		cmd.Stdout = diag
		cmd.Stderr = diag
		return cmd.Run()
	}
}

// workerArgs is the command line of worker rank.
func (a *App) workerArgs(rank int, masterURL, token string) []string {
	args := []string{
		"-role", RoleWorker,
		"-rank", strconv.Itoa(rank),
		"-workers", strconv.Itoa(a.config.Workers),
		"-master", masterURL,
		"-token", token,
		"-run-id", a.runID,
		"-file", a.model.Source,
		"-log-level", a.config.LogLevel,
		"-log-format", a.config.LogFormat,
		"-connect-timeout", a.config.ConnectTimeout.String(),
	}
	if a.config.RunTimeout > 0 {
		args = append(args, "-timeout", a.config.RunTimeout.String())
	}
	if a.config.Verbose {
		args = append(args, "-verbose")
	}
	if a.config.Warnings {
		args = append(args, "-warnings")
	}
	return args
}

// runSpawned serves the master over socket.io and launches one process per
// worker rank.
func (a *App) runSpawned(ctx context.Context, reader *rowio.Reader, writer *rowio.Writer) (dispatcher.Stats, error) {
	logger := ctxlog.FromContext(ctx)
	token := uuid.NewString()

	master, err := siochannel.Listen(ctx, a.config.ListenAddr, a.config.Workers, token)
	if err != nil {
		return dispatcher.Stats{}, err
	}
	defer master.Close()
	logger.Info("🚀 Master listening, launching workers...", "url", master.URL(), "workers", a.config.Workers)

	d := dispatcher.New(master, reader, writer, dispatcher.Options{BlockSize: a.config.BlockSize})
	stopHealth := a.startHealthcheckServer(ctx, d)
	defer stopHealth()

	g, gctx := errgroup.WithContext(ctx)
	for rank := 1; rank <= a.config.Workers; rank++ {
		args := a.workerArgs(rank, master.URL(), token)
		g.Go(func() error {
			if err := a.launch(gctx, rank, args); err != nil {
				return fmt.Errorf("worker %d: %w", rank, err)
			}
			logger.Debug("Worker exited.", "worker", rank)
			return nil
		})
	}

	var stats dispatcher.Stats
	g.Go(func() error {
		if err := master.WaitForWorkers(gctx, a.config.ConnectTimeout); err != nil {
			master.Abort(err)
			return err
		}
		logger.Debug("All workers joined.")
		var err error
		stats, err = d.Run(gctx)
		return err
	})
	err = g.Wait()
	return stats, err
}

// runWorker joins a master as one worker rank and serves it until
// terminated.
func (a *App) runWorker(ctx context.Context) error {
	ch, err := siochannel.Dial(ctx, siochannel.DialOptions{
		URL:     a.config.MasterURL,
		Rank:    a.config.Rank,
		Workers: a.config.Workers,
		Token:   a.config.Token,
		Timeout: a.config.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to join master: %w", err)
	}
	defer ch.Close()

	w, err := a.newWorker(ctx, ch)
	if err != nil {
		ch.Abort(err)
		return err
	}
	return w.Run(ctx)
}
