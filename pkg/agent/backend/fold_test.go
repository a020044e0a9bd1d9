package backend

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticProfile builds a cpu-shaped profile with two sample types
// and three functions. Stacks are leaf-first as pprof stores them.
func syntheticProfile() *profile.Profile {
	fnMain := &profile.Function{ID: 1, Name: "main.main"}
	fnFoo := &profile.Function{ID: 2, Name: "main.foo"}
	fnBar := &profile.Function{ID: 3, Name: "main.bar"}

	locMain := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnMain}}}
	locFoo := &profile.Location{ID: 2, Line: []profile.Line{{Function: fnFoo}}}
	locBar := &profile.Location{ID: 3, Line: []profile.Line{{Function: fnBar}}}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:     10_000_000,
		Sample: []*profile.Sample{
			{Location: []*profile.Location{locBar, locFoo, locMain}, Value: []int64{5, 50_000_000}},
			{Location: []*profile.Location{locBar, locFoo, locMain}, Value: []int64{3, 30_000_000}},
			{Location: []*profile.Location{locFoo, locMain}, Value: []int64{2, 20_000_000}},
			{Location: []*profile.Location{locMain}, Value: []int64{0, 0}},
		},
		Location: []*profile.Location{locMain, locFoo, locBar},
		Function: []*profile.Function{fnMain, fnFoo, fnBar},
	}
}

func TestFoldStacks_RootFirstAggregation(t *testing.T) {
	stacks, err := foldStacks(syntheticProfile(), "samples")
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"main.main;main.foo;main.bar": 8,
		"main.main;main.foo":          2,
	}, stacks, "identical stacks aggregate, zero-valued samples drop")
}

func TestFoldStacks_SelectsSampleType(t *testing.T) {
	stacks, err := foldStacks(syntheticProfile(), "cpu")
	require.NoError(t, err)

	assert.Equal(t, int64(80_000_000), stacks["main.main;main.foo;main.bar"])
	assert.Equal(t, int64(20_000_000), stacks["main.main;main.foo"])
}

func TestFoldStacks_UnknownSampleType(t *testing.T) {
	_, err := foldStacks(syntheticProfile(), "wall")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "wall" sample type`)
}

func TestFoldStacks_InlineFrames(t *testing.T) {
	outer := &profile.Function{ID: 1, Name: "main.outer"}
	hot := &profile.Function{ID: 2, Name: "main.hot"}

	// Line[0] is the innermost inlined frame.
	loc := &profile.Location{ID: 1, Line: []profile.Line{
		{Function: hot},
		{Function: outer},
	}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{loc}, Value: []int64{4}},
		},
		Location: []*profile.Location{loc},
		Function: []*profile.Function{outer, hot},
	}

	stacks, err := foldStacks(p, "samples")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"main.outer;main.hot": 4}, stacks)
}

func TestFoldStacks_MissingFunction(t *testing.T) {
	loc := &profile.Location{ID: 1, Address: 0xabcd}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{loc}, Value: []int64{1}},
		},
		Location: []*profile.Location{loc},
	}

	stacks, err := foldStacks(p, "samples")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"0xabcd": 1}, stacks)
}

func TestRenderFolded_SortedPositiveLines(t *testing.T) {
	out := renderFolded(map[string]int64{
		"b;y": 2,
		"a;x": 1,
		"c;z": 0,
		"d;w": -5,
	})

	assert.Equal(t, "a;x 1\nb;y 2\n", string(out))
}

func TestRenderFolded_Empty(t *testing.T) {
	assert.Empty(t, renderFolded(nil))
	assert.Empty(t, renderFolded(map[string]int64{"idle": 0}))
}

func TestFold_SerializedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, syntheticProfile().Write(&buf))

	out, err := fold(buf.Bytes(), "samples")
	require.NoError(t, err)

	assert.Equal(t,
		"main.main;main.foo 2\nmain.main;main.foo;main.bar 8\n",
		string(out))
}

func TestFold_Garbage(t *testing.T) {
	_, err := fold([]byte("not a profile"), "samples")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing profile")
}
