package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/batchgrid/internal/app"
	"github.com/vk/batchgrid/internal/dispatcher"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("batchgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
batchgrid - runs parameterized simulation replications across a pool of workers.

Usage:
  batchgrid [options] [DEFINITION] < rows.csv > records.csv

Arguments:
  DEFINITION
    Simulation definition (.hcl) to run, looked up inside -package.

Options:
`)
		flagSet.PrintDefaults()
	}

	packageFlag := flagSet.String("package", "", "Directory searched for the simulation definition. Default is the working directory.")
	fileFlag := flagSet.String("file", "", "Simulation definition file (alternative to the positional argument).")
	templateFlag := flagSet.Bool("template", false, "Write an input template for the definition instead of running.")
	complexFlag := flagSet.Bool("complex", false, "With -template, write a complex-mode template.")
	inputFlag := flagSet.String("input", "-", "Input rows. '-' is stdin.")
	outputFlag := flagSet.String("output", "-", "Output records. '-' is stdout.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Time limit for a single simulation. 0 is unlimited.")
	blockSizeFlag := flagSet.Int("block-size", dispatcher.DefaultBlockSize, "Maximum number of rows sent to a worker at once.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkers, "Number of worker ranks.")
	modeFlag := flagSet.String("mode", app.ModeInProcess, "Worker execution mode. Options: 'in-process' or 'spawned'.")
	verboseFlag := flagSet.Bool("verbose", false, "Write every view step by step instead of the final values.")
	warningsFlag := flagSet.Bool("warnings", false, "Log row errors instead of writing them as records.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	connectTimeoutFlag := flagSet.Duration("connect-timeout", app.DefaultConnectTimeout, "How long spawned workers may take to join the master.")
	listenFlag := flagSet.String("listen", app.DefaultListenAddr, "Address the master listens on in spawned mode.")
	configFlag := flagSet.String("config", "", "YAML file with default values for any of these options.")

	// Worker role, set by the master when it spawns workers.
	roleFlag := flagSet.String("role", app.RoleMaster, "Process role. Options: 'master' or 'worker'.")
	rankFlag := flagSet.Int("rank", 0, "Worker rank (worker role).")
	masterFlag := flagSet.String("master", "", "Master URL to join (worker role).")
	tokenFlag := flagSet.String("token", "", "Token the master expects (worker role).")
	runIDFlag := flagSet.String("run-id", "", "Run id shared by every rank's logs.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if *configFlag != "" {
		if err := applyDefaultsFile(flagSet, *configFlag); err != nil {
			return nil, false, err
		}
	}

	path := *fileFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))
	}
	slog.Debug("Definition path determined.", "path", path)

	if path == "" {
		slog.Debug("No definition provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PackageDir:      *packageFlag,
		DefinitionFile:  path,
		Template:        *templateFlag,
		Complex:         *complexFlag,
		InputPath:       *inputFlag,
		OutputPath:      *outputFlag,
		RunTimeout:      *timeoutFlag,
		BlockSize:       *blockSizeFlag,
		Workers:         *workersFlag,
		Mode:            *modeFlag,
		Verbose:         *verboseFlag,
		Warnings:        *warningsFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		ConnectTimeout:  *connectTimeoutFlag,
		ListenAddr:      *listenFlag,
		Role:            *roleFlag,
		Rank:            *rankFlag,
		MasterURL:       *masterFlag,
		Token:           *tokenFlag,
		RunID:           *runIDFlag,
	})
	if err != nil {
		if errors.Is(err, dispatcher.ErrNoWorkers) {
			return nil, false, usageError("invalid topology: %s", err)
		}
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
