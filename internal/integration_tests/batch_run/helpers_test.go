package integration_tests

import (
	"context"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/app"
	"github.com/vk/batchgrid/internal/hcl"
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/internal/testutil"
)

// runResult is what one batch run produced.
type runResult struct {
	Out  string
	Logs string
	Err  error
}

// Lines returns the output records sorted, since completion order is free.
func (r runResult) Lines() []string {
	if r.Out == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(r.Out, "\n"), "\n")
	sort.Strings(lines)
	return lines
}

// runBatch writes the definition as sim.hcl, then builds and runs an app
// over input. With no modules the built-in engines are used.
func runBatch(t *testing.T, cfg app.Config, definition, input string, modules ...registry.Module) runResult {
	t.Helper()
	cfg.PackageDir = testutil.WriteFiles(t, map[string]string{"sim.hcl": definition})
	cfg.DefinitionFile = "sim"
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	cfg.LogLevel = "debug"
	conf, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	a, err := app.NewApp(app.Streams{In: strings.NewReader(input), Out: out, Err: logs}, conf, hcl.NewLoader(), modules...)
	require.NoError(t, err)

	err = a.Run(context.Background())
	res := runResult{Out: out.String(), Logs: logs.String(), Err: err}
	if os.Getenv("BGGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Logs)
	}
	return res
}
