package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/batchgrid/internal/app"
	"github.com/vk/batchgrid/internal/cli"
	"github.com/vk/batchgrid/internal/hcl"
)

// main is the entrypoint for the batchgrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, app.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Records go to streams.Out; usage text and logs go to streams.Err.
func run(ctx context.Context, streams app.Streams, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, streams.Err)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked | %v", r)
		}
	}()

	batchgridApp, err := app.NewApp(streams, appConfig, hcl.NewLoader())
	if err != nil {
		return err
	}
	return batchgridApp.Run(ctx)
}
