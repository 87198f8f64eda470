package app

import (
	"io"
	"log/slog"
)

// newLogger builds the process logger from cfg. Every record carries the
// run id and the role; worker records also carry their rank so interleaved
// output from spawned processes can be told apart. An unrecognized level
// falls back to info.
func newLogger(cfg *Config, runID string, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	}

	attrs := []any{"run_id", runID, "role", cfg.Role}
	if cfg.Role == RoleWorker {
		attrs = append(attrs, "rank", cfg.Rank)
	}
	return slog.New(h).With(attrs...)
}
