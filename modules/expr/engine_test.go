package expr

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/hcl"
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/internal/result"
	"github.com/zclconf/go-cty/cty"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func load(t *testing.T, src string) *config.Model {
	t.Helper()
	model, err := hcl.NewLoader().LoadSource(testContext(), "sim.hcl", []byte(src))
	require.NoError(t, err)
	return model
}

const growth = `
simulation {
  duration = 3
}

condition "cond1" {
  portA = 2
  rates = [0.5, 1.5]
}

view "summary" {
  column "total" {
    value = coalesce(prev.total, 0) + condition.cond1.portA
  }
  column "step" {
    value = "t${time}"
  }
  column "rate" {
    value = condition.cond1.rates[1]
    type  = string
  }
}

view "meta" {
  column "rep" { value = replication }
  column "noise" { value = floor(rand() * 1000) }
}
`

func finals(t *testing.T, m *result.Map) []string {
	t.Helper()
	var out []string
	for _, v := range m.Views() {
		for _, val := range v.Final() {
			out = append(out, result.FormatValue(val))
		}
	}
	return out
}

func TestEngine_Run(t *testing.T) {
	model := load(t, growth)
	engine, err := New(testContext(), model)
	require.NoError(t, err)

	out, err := engine.Run(testContext(), model.Clone(7), 7)
	require.NoError(t, err)

	summary, ok := out.View("summary")
	require.True(t, ok)
	require.Len(t, summary.Rows, 3)
	assert.True(t, summary.Rows[0][0].RawEquals(cty.NumberIntVal(2)))

	got := finals(t, out)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"6", "t2", "1.5", "7"}, got[:4])
}

func TestEngine_ReadsCurrentConditions(t *testing.T) {
	model := load(t, growth)
	engine, err := New(testContext(), model)
	require.NoError(t, err)

	clone := model.Clone(1)
	cond, _ := clone.Conditions.Condition("cond1")
	require.NoError(t, cond.SetPort("portA", cty.NumberIntVal(10)))

	out, err := engine.Run(testContext(), clone, 1)
	require.NoError(t, err)
	assert.Equal(t, "30", finals(t, out)[0])
}

func TestEngine_RandIsSeededByReplication(t *testing.T) {
	model := load(t, growth)
	engine, err := New(testContext(), model)
	require.NoError(t, err)

	run := func(rep int64) string {
		out, err := engine.Run(testContext(), model.Clone(rep), rep)
		require.NoError(t, err)
		return finals(t, out)[4]
	}
	assert.Equal(t, run(3), run(3))
}

func TestEngine_StopsOnCancel(t *testing.T) {
	model := load(t, growth)
	engine, err := New(testContext(), model)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testContext())
	cancel()
	_, err = engine.Run(ctx, model.Clone(0), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RuntimeError(t *testing.T) {
	model := load(t, `
condition "c" {
  name = "abc"
}
view "v" {
  column "x" { value = condition.c.name * 2 }
}
`)
	engine, err := New(testContext(), model)
	require.NoError(t, err)

	_, err = engine.Run(testContext(), model.Clone(0), 0)
	assert.ErrorContains(t, err, `view "v" column "x" at time 0`)
}

func TestNew_RejectsBadReferences(t *testing.T) {
	cases := map[string]string{
		"unknown variable":  `other + 1`,
		"unknown condition": `condition.nope.x`,
		"unknown port":      `condition.c.nope`,
		"unknown prev":      `prev.nope`,
		"unknown function":  `sqrt(4)`,
		"nested function":   `max(1, [for v in [1] : nope(v)][0])`,
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			model := load(t, "condition \"c\" {\n  p = 1\n}\nview \"v\" {\n  column \"x\" {\n    value = "+expr+"\n  }\n}\n")
			_, err := New(testContext(), model)
			assert.Error(t, err)
		})
	}
}

func TestModule_Register(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	assert.Equal(t, []string{Name}, r.Names())

	model := load(t, growth)
	require.NoError(t, r.Validate(testContext(), model))
}
