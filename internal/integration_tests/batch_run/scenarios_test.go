package integration_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/app"
	"github.com/vk/batchgrid/internal/paramtree"
	"github.com/vk/batchgrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const recordingDefinition = `
simulation {
  engine = "recording"
}

condition "cond1" {
  portA = 1
  portB = [0.5, 1.5]
}
`

func recording(watch ...string) (*testutil.RecordingEngine, *testutil.EngineModule) {
	engine := &testutil.RecordingEngine{Watch: watch}
	return engine, &testutil.EngineModule{Name: "recording", Engine: engine}
}

// Test for: each flat row sets the bound leaf and triggers one simulation
func TestBatch_FlatRowsDriveOneCallEach(t *testing.T) {
	t.Parallel()
	engine, module := recording("cond1.portA")

	res := runBatch(t, app.Config{}, recordingDefinition, "cond1.portA\n1\n2\n", module)
	require.NoError(t, res.Err)
	assert.Equal(t, "1\n2\n", res.Out)

	calls := engine.Calls()
	require.Len(t, calls, 2)
	for i, want := range []int64{1, 2} {
		assert.Equal(t, int64(i), calls[i].Replication)
		got := calls[i].Conditions.GetAttr("cond1").GetAttr("portA")
		assert.True(t, got.Equals(cty.NumberIntVal(want)).True(), "call %d saw %#v", i, got)
	}
}

// Test for: the complex-mode bookkeeping id names the record
func TestBatch_ComplexRowIsTaggedByBatchID(t *testing.T) {
	t.Parallel()
	_, module := recording("cond1.portA")
	input := "@complex\n{ _batch = { id = \"run7\" }, cond1 = { portA = 3 } }\n"

	res := runBatch(t, app.Config{}, recordingDefinition, input, module)
	require.NoError(t, res.Err)
	assert.Equal(t, "run7\n3\n\n", res.Out)
}

// Test for: a blank flat cell restores the default instead of failing
func TestBatch_BlankCellUsesDefault(t *testing.T) {
	t.Parallel()
	_, module := recording("cond1.portA")

	res := runBatch(t, app.Config{}, recordingDefinition, "label,cond1.portA\nr1,5\nr2,\n", module)
	require.NoError(t, res.Err)
	assert.Equal(t, "r1,5\nr2,1\n", res.Out)
}

// Test for: indexing past the end of a set is a configuration error
func TestBatch_IndexPastEndFailsTheRun(t *testing.T) {
	t.Parallel()
	engine, module := recording()

	res := runBatch(t, app.Config{Workers: 2}, recordingDefinition, "cond1.portB.2\n1\n", module)
	require.Error(t, res.Err)
	assert.Empty(t, res.Out)
	assert.Empty(t, engine.Calls())

	var pathErr *paramtree.PathError
	require.True(t, errors.As(res.Err, &pathErr), "want a PathError in %v", res.Err)
	assert.Equal(t, "cond1", pathErr.Condition)
	assert.Equal(t, "portB", pathErr.Port)
	assert.Contains(t, res.Err.Error(), `condition "cond1" port "portB": segment 2 ("2"): index 2 out of range (length 2)`)
}

// Test for: row-level failures become records and the run goes on
func TestBatch_RowErrorsAreRecords(t *testing.T) {
	t.Parallel()
	engine, module := recording("cond1.portA")
	engine.Fail = func(replication int64) error {
		if replication == 1 {
			return errors.New("diverged")
		}
		return nil
	}

	res := runBatch(t, app.Config{}, recordingDefinition, "cond1.portA\n1\n2\n3\n", module)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"1", "3", "error: row 1: diverged"}, res.Lines())

	// A cell that is not a number fails binding, not the engine.
	res = runBatch(t, app.Config{}, recordingDefinition, "cond1.portA\nx\n", module)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "error: row 0: ")
}
