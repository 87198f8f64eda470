package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/hcl"
)

// LoadModel parses an HCL definition held in memory. It accepts any
// require.TestingT so property tests can call it too.
func LoadModel(t require.TestingT, src string) *config.Model {
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	model, err := hcl.NewLoader().LoadSource(ctx, "test.hcl", []byte(src))
	require.NoError(t, err)
	return model
}

// WriteFiles writes files (relative path to content) under a fresh
// temporary directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
