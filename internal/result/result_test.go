package result

import (
	"strconv"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"pgregory.net/rapid"
)

func TestPrecision(t *testing.T) {
	assert.Equal(t, 17, Precision)
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   cty.Value
		want string
	}{
		{cty.NumberIntVal(42), "42"},
		{cty.NumberIntVal(-7), "-7"},
		{cty.NumberFloatVal(3.0), "3"},
		{cty.NumberFloatVal(0.5), "0.5"},
		{cty.NumberFloatVal(0.1), "0.10000000000000001"},
		{cty.NumberFloatVal(1.0 / 3), "0.33333333333333331"},
		{cty.MustParseNumberVal("12345678901234567890123"), "12345678901234567890123"},
		{cty.True, "true"},
		{cty.StringVal("a b"), "a b"},
		{cty.NullVal(cty.Number), ""},
		{cty.StringVal("x\ny,z"), `"x\ny,z"`},
		{cty.StringVal(`say "hi"`), `"say \"hi\""`},
		{cty.StringVal("a\r\nb"), `"a\r\nb"`},
		{cty.TupleVal([]cty.Value{cty.NumberIntVal(1)}), `[1]`},
		{cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("x")}), `"[1,\"x\"]"`},
		{cty.ObjectVal(map[string]cty.Value{"k": cty.False}), `"{\"k\":false}"`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatValue(tc.in), "%#v", tc.in)
	}
}

func TestFormatNumber_ReparseIsStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.Float64Range(-1e12, 1e12).Draw(t, "f")
		first := FormatNumber(cty.NumberFloatVal(f))

		reparsed, err := cty.ParseNumberVal(first)
		if err != nil {
			t.Fatalf("cannot reparse %q: %v", first, err)
		}
		if second := FormatNumber(reparsed); second != first {
			t.Fatalf("format is not stable: %q then %q", first, second)
		}

		back, _ := reparsed.AsBigFloat().Float64()
		if back != f {
			t.Fatalf("%q reads back as %v, want %v", first, back, f)
		}
	})
}

func sampleMap(t *testing.T) *Map {
	t.Helper()
	m := NewMap()
	v, err := m.AddView("summary", "total", "label")
	require.NoError(t, err)
	require.NoError(t, v.Append([]cty.Value{cty.NumberIntVal(1), cty.StringVal("a")}))
	require.NoError(t, v.Append([]cty.Value{cty.NumberFloatVal(2.5), cty.StringVal("b")}))

	_, err = m.AddView("empty", "x")
	require.NoError(t, err)
	return m
}

func TestMap(t *testing.T) {
	m := sampleMap(t)

	_, err := m.AddView("summary")
	assert.Error(t, err)

	v, ok := m.View("summary")
	require.True(t, ok)
	assert.Error(t, v.Append([]cty.Value{cty.True}))
	assert.Len(t, m.Views(), 2)
}

func TestFlatRecord(t *testing.T) {
	assert.Equal(t, "k1,k2,2.5,b,", FlatRecord([]string{"k1", "k2"}, sampleMap(t)))
	assert.Equal(t, "k1", FlatRecord([]string{"k1"}, nil))
}

func TestFlatRecord_OneLineAndOneFieldPerCell(t *testing.T) {
	m := NewMap()
	v, err := m.AddView("v", "text", "n")
	require.NoError(t, err)
	require.NoError(t, v.Append([]cty.Value{cty.StringVal("x\ny,z"), cty.NumberIntVal(2)}))

	got := FlatRecord([]string{"k"}, m)
	assert.Equal(t, `k,"x\ny,z",2`, got)
	assert.NotContains(t, got, "\n")

	unquoted, err := strconv.Unquote(`"x\ny,z"`)
	require.NoError(t, err)
	assert.Equal(t, "x\ny,z", unquoted)
}

func TestErrorRecord(t *testing.T) {
	assert.Equal(t, "error: row 4: bad value on two lines", ErrorRecord(4, "bad value\non two lines"))
}

func TestDump(t *testing.T) {
	out := Dump(sampleMap(t))

	file, diags := hclsyntax.ParseConfig([]byte(out), "dump.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	blocks := file.Body.(*hclsyntax.Body).Blocks
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"summary"}, blocks[0].Labels)
	assert.Len(t, blocks[0].Body.Blocks, 2)
	assert.Equal(t, []string{"empty"}, blocks[1].Labels)

	attrs := blocks[0].Body.Blocks[1].Body.Attributes
	total, diags := attrs["total"].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.True(t, total.RawEquals(cty.NumberFloatVal(2.5)))

	assert.Empty(t, Dump(nil))
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Add(Record{Row: 0, Text: "a,1"})
	b.AddTagged("run7", Record{Row: 1, Text: "b,2"})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "a,1\nrun7\nb,2\n\n", b.String())
}
