package paramtree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := New()
	c1, err := tree.AddCondition("cond1")
	require.NoError(t, err)
	require.NoError(t, c1.AddPort("portA", cty.NumberIntVal(1)))
	require.NoError(t, c1.AddPort("portB", cty.TupleVal([]cty.Value{cty.NumberFloatVal(0.5), cty.NumberFloatVal(1.5)})))
	require.NoError(t, c1.AddPort("portC", cty.ObjectVal(map[string]cty.Value{
		"alpha": cty.True,
		"name":  cty.StringVal("x"),
	})))

	c2, err := tree.AddCondition("cond2")
	require.NoError(t, err)
	require.NoError(t, c2.AddPort("weights", cty.MapVal(map[string]cty.Value{
		"a": cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
	})))
	return tree
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("cond1.portB.1")
	require.NoError(t, err)
	assert.Equal(t, Path{Condition: "cond1", Port: "portB", Segments: []string{"1"}}, p)
	assert.Equal(t, "cond1.portB.1", p.String())

	_, err = ParsePath("cond1")
	assert.Error(t, err)
	_, err = ParsePath("cond1..x")
	assert.Error(t, err)
}

func TestTree_DuplicateDeclarations(t *testing.T) {
	tree := New()
	c, err := tree.AddCondition("c")
	require.NoError(t, err)
	_, err = tree.AddCondition("c")
	assert.Error(t, err)

	require.NoError(t, c.AddPort("p", cty.True))
	assert.Error(t, c.AddPort("p", cty.False))
	assert.Error(t, c.SetPort("missing", cty.True))
}

func TestResolve_SetAndGetThroughCollections(t *testing.T) {
	tree := sampleTree(t)

	cases := []struct {
		path string
		set  cty.Value
		want cty.Value
	}{
		{"cond1.portA", cty.NumberIntVal(7), cty.NumberIntVal(7)},
		{"cond1.portB.1", cty.NumberFloatVal(2.25), cty.NumberFloatVal(2.25)},
		{"cond1.portC.alpha", cty.False, cty.False},
		{"cond1.portC.name", cty.StringVal("y"), cty.StringVal("y")},
		{"cond2.weights.a.0", cty.NumberIntVal(9), cty.NumberIntVal(9)},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			p, err := ParsePath(tc.path)
			require.NoError(t, err)
			ref, err := tree.Resolve(p)
			require.NoError(t, err)

			require.NoError(t, tree.Set(ref, tc.set))
			got, err := tree.Get(ref)
			require.NoError(t, err)
			assert.True(t, got.RawEquals(tc.want), "got %#v", got)
		})
	}

	// Sibling elements are untouched by a leaf update.
	port, _ := mustCondition(t, tree, "cond1").Port("portB")
	assert.True(t, port.Index(cty.NumberIntVal(0)).RawEquals(cty.NumberFloatVal(0.5)))
}

func TestSet_ConvertsToLeafType(t *testing.T) {
	tree := sampleTree(t)
	ref, err := tree.Resolve(Path{Condition: "cond1", Port: "portC", Segments: []string{"name"}})
	require.NoError(t, err)

	require.NoError(t, tree.Set(ref, cty.NumberIntVal(12)))
	got, err := tree.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("12"), got)

	ref, err = tree.Resolve(Path{Condition: "cond1", Port: "portA"})
	require.NoError(t, err)
	assert.Error(t, tree.Set(ref, cty.StringVal("not a number")))
}

func TestResolve_Errors(t *testing.T) {
	tree := sampleTree(t)

	cases := []struct {
		path     string
		segment  string
		position int
		contains string
	}{
		{"nope.portA", "", 0, "unknown condition"},
		{"cond1.nope", "", 1, "unknown port"},
		{"cond1.portB.5", "5", 2, "index 5 out of range (length 2)"},
		{"cond1.portB.-1", "-1", 2, "non-negative integer index"},
		{"cond1.portB.x", "x", 2, "non-negative integer index"},
		{"cond1.portC.beta", "beta", 2, "unknown key"},
		{"cond2.weights.b", "b", 2, "unknown key"},
		{"cond1.portA.0", "0", 2, "cannot descend into a number"},
		{"cond2.weights.a.0.1", "1", 4, "cannot descend"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			p, err := ParsePath(tc.path)
			require.NoError(t, err)
			_, err = tree.Resolve(p)

			var perr *PathError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tc.segment, perr.Segment)
			assert.Equal(t, tc.position, perr.Position)
			assert.Contains(t, perr.Error(), tc.contains)
			assert.Contains(t, perr.Error(), p.Condition)
		})
	}
}

func TestResolve_OutOfRangeErrorNamesEverything(t *testing.T) {
	tree := sampleTree(t)
	_, err := tree.Resolve(Path{Condition: "cond1", Port: "portB", Segments: []string{"2"}})
	require.EqualError(t, err, `condition "cond1" port "portB": segment 2 ("2"): index 2 out of range (length 2)`)
}

func TestSnapshotRestore(t *testing.T) {
	tree := sampleTree(t)
	before := tree.Clone()
	snap := tree.Snapshot()

	c1 := mustCondition(t, tree, "cond1")
	require.NoError(t, c1.SetPort("portA", cty.NumberIntVal(100)))
	require.NoError(t, c1.SetPort("portC", cty.StringVal("replaced wholesale")))
	require.False(t, tree.Equal(before))

	tree.Restore(snap)
	assert.True(t, tree.Equal(before))
}

func TestClone_IsIndependent(t *testing.T) {
	tree := sampleTree(t)
	clone := tree.Clone()
	require.NoError(t, mustCondition(t, clone, "cond1").SetPort("portA", cty.NumberIntVal(5)))

	v, _ := mustCondition(t, tree, "cond1").Port("portA")
	assert.Equal(t, cty.NumberIntVal(1), v)
	assert.Equal(t, []string{"cond1", "cond2"}, names(clone.Conditions()))
}

func TestLeaves(t *testing.T) {
	tree := sampleTree(t)
	var got []string
	for _, p := range tree.Leaves() {
		got = append(got, p.String())
	}
	want := []string{
		"cond1.portA",
		"cond1.portB.0",
		"cond1.portB.1",
		"cond1.portC.alpha",
		"cond1.portC.name",
		"cond2.weights.a.0",
		"cond2.weights.a.1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Leaves() mismatch (-want +got):\n%s", diff)
	}
}

func TestObject(t *testing.T) {
	tree := sampleTree(t)
	obj := tree.Object()
	assert.True(t, obj.GetAttr("cond1").GetAttr("portA").RawEquals(cty.NumberIntVal(1)))
	assert.Equal(t, cty.EmptyObjectVal, New().Object())
}

func mustCondition(t *testing.T, tree *Tree, name string) *Condition {
	t.Helper()
	c, ok := tree.Condition(name)
	require.True(t, ok)
	return c
}

func names(cs []*Condition) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
